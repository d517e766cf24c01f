package server

import (
	"embed"
	"log"
)

//go:embed static
var embedFS embed.FS

// indexHTML は埋め込まれた操作ページの内容を返す
func indexHTML() []byte {
	data, err := embedFS.ReadFile("static/index.html")
	if err != nil {
		log.Fatalf("埋め込みindex.htmlの読み込みに失敗: %v", err)
	}
	return data
}
