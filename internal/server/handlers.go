package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"soujuu/internal/camera"
	"soujuu/internal/snapshot"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// CameraStatusResponse はカメラ状態のレスポンス
type CameraStatusResponse struct {
	Streaming bool         `json:"streaming"`
	HasCamera bool         `json:"has_camera"`
	State     camera.State `json:"state"`
}

// ToggleCameraResponse はカメラ切り替えのレスポンス
type ToggleCameraResponse struct {
	Streaming bool   `json:"streaming"`
	HasCamera bool   `json:"has_camera"`
	Error     string `json:"error,omitempty"`
}

// CommandResponse は走行コマンドのレスポンス
type CommandResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status    string       `json:"status"`
	Host      string       `json:"host"`
	Port      int          `json:"port"`
	HasCamera bool         `json:"has_camera"`
	Camera    camera.State `json:"camera"`
	Timestamp time.Time    `json:"timestamp"`
}

// SnapshotsResponse は静止画一覧のレスポンス
type SnapshotsResponse struct {
	Snapshots []snapshot.Info `json:"snapshots"`
}

// handleIndex は操作ページを配信する
func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML())
}

// handleVideoFeed はMJPEGストリーミングエンドポイント
//
// クライアントごとに最終観測シーケンス番号を保持し、新しいフレームだけを
// multipart形式で送出する。遅いクライアントは中間フレームをスキップする
func (s *Server) handleVideoFeed(c *gin.Context) {
	if !s.hasCamera || !s.streamer.Streaming() {
		c.JSON(http.StatusServiceUnavailable, ToggleCameraResponse{
			Streaming: false,
			HasCamera: s.hasCamera,
			Error:     "カメラはストリーミングしていません",
		})
		return
	}

	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	clientID := uuid.New().String()
	log.Printf("MJPEG配信を開始: client=%s", clientID)
	defer log.Printf("MJPEG配信を終了: client=%s", clientID)

	// クライアント切断でWaitFrameが解放される
	ctx := c.Request.Context()

	var lastSeq uint64
	for {
		frame, err := s.streamer.WaitFrame(ctx, lastSeq)
		if err != nil {
			// 切断・停止・ソース障害のいずれでもループを抜ける
			return
		}
		lastSeq = frame.Seq

		if _, err := writer.Write([]byte("--frame\r\n")); err != nil {
			return
		}
		if _, err := writer.Write([]byte("Content-Type: image/jpeg\r\n\r\n")); err != nil {
			return
		}
		if _, err := writer.Write(frame.Data); err != nil {
			return
		}
		if _, err := writer.Write([]byte("\r\n")); err != nil {
			return
		}

		flusher.Flush()
	}
}

// wsUpgrader はWebSocket接続のアップグレード設定
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	// 操作ページ以外からの接続も許可する
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// handleVideoWS はWebSocketストリーミングエンドポイント
//
// JPEGフレームをバイナリメッセージとして送出する。
// フレーム消費の意味論はMJPEG配信と同じ
func (s *Server) handleVideoWS(c *gin.Context) {
	if !s.hasCamera || !s.streamer.Streaming() {
		c.JSON(http.StatusServiceUnavailable, ToggleCameraResponse{
			Streaming: false,
			HasCamera: s.hasCamera,
			Error:     "カメラはストリーミングしていません",
		})
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocketのアップグレードに失敗: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	clientID := uuid.New().String()
	log.Printf("WebSocket配信を開始: client=%s", clientID)
	defer log.Printf("WebSocket配信を終了: client=%s", clientID)

	// クライアント切断の検知用。受信メッセージは読み捨てる
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	var lastSeq uint64
	for {
		frame, err := s.streamer.WaitFrame(ctx, lastSeq)
		if err != nil {
			return
		}
		lastSeq = frame.Seq

		if err := conn.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
			return
		}
	}
}

// handleToggleCamera はカメラストリーミングの開始/停止を切り替える
func (s *Server) handleToggleCamera(c *gin.Context) {
	if !s.hasCamera {
		// カメラ非搭載時は何もしない
		c.JSON(http.StatusOK, ToggleCameraResponse{Streaming: false, HasCamera: false})
		return
	}

	ctx := c.Request.Context()

	if s.streamer.Streaming() {
		if err := s.streamer.Stop(ctx); err != nil {
			log.Printf("カメラの停止に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, ToggleCameraResponse{
				Streaming: s.streamer.Streaming(),
				HasCamera: true,
				Error:     err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, ToggleCameraResponse{Streaming: false, HasCamera: true})
		return
	}

	if err := s.streamer.Start(ctx); err != nil {
		log.Printf("カメラの開始に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, ToggleCameraResponse{
			Streaming: false,
			HasCamera: true,
			Error:     err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, ToggleCameraResponse{Streaming: true, HasCamera: true})
}

// handleCameraStatus は現在のカメラ状態を返す
func (s *Server) handleCameraStatus(c *gin.Context) {
	c.JSON(http.StatusOK, CameraStatusResponse{
		Streaming: s.hasCamera && s.streamer.Streaming(),
		HasCamera: s.hasCamera,
		State:     s.streamer.State(),
	})
}

// handleCmd は走行コマンドを受け付ける
func (s *Server) handleCmd(c *gin.Context) {
	cmd := c.PostForm("id")
	if cmd == "" {
		c.JSON(http.StatusBadRequest, CommandResponse{
			Status:  "error",
			Message: "コマンドIDが指定されていません",
		})
		return
	}

	// 撮影コマンドはカメラ側で処理する
	if cmd == "take-picture" {
		s.handleTakePicture(c)
		return
	}

	if err := s.drive.Dispatch(cmd); err != nil {
		c.JSON(http.StatusInternalServerError, CommandResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, CommandResponse{
		Status:  "ok",
		Message: "command executed",
	})
}

// handleTakePicture は最新フレームを静止画として保存する
//
// 暗黙のカメラ起動は行わない。配信中でなければエラーを返す
func (s *Server) handleTakePicture(c *gin.Context) {
	if !s.hasCamera {
		c.JSON(http.StatusServiceUnavailable, CommandResponse{
			Status:  "error",
			Message: "カメラは利用できません",
		})
		return
	}

	frame, ok := s.streamer.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, CommandResponse{
			Status:  "error",
			Message: "カメラが起動していません",
		})
		return
	}

	path, err := s.snapshots.Save(frame.Data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, CommandResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, CommandResponse{
		Status:  "ok",
		Message: "静止画を保存しました: " + path,
	})
}

// handleSnapshots は保存済み静止画の一覧を返す
func (s *Server) handleSnapshots(c *gin.Context) {
	infos, err := s.snapshots.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, CommandResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}
	if infos == nil {
		infos = []snapshot.Info{}
	}
	c.JSON(http.StatusOK, SnapshotsResponse{Snapshots: infos})
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleStatus はシステム状態を返す
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:    "running",
		Host:      s.config.Server.Host,
		Port:      s.config.Server.Port,
		HasCamera: s.hasCamera,
		Camera:    s.streamer.State(),
		Timestamp: time.Now(),
	})
}
