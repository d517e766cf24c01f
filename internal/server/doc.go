// Package server は、HTTPサーバーとストリーミング配信を管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// 操作ページの配信、走行コマンドの受付を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - MJPEG / WebSocketによる映像ストリーミング配信
//   - カメラの開始・停止リクエストの受付
//   - 走行コマンドのディスパッチ
//   - 操作ページ（HTML）の配信
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - WebSocketはgorilla/websocketを使用
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server
