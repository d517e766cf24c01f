// Package camera カメラのキャプチャとフレーム配信を担う
//
// # 責務
// - キャプチャゴルーチンのライフサイクル管理（停止中/起動中/配信中）
// - 最新フレームの保持と複数クライアントへのブロードキャスト
// - カメラデバイスの存在検出
// - ffmpeg経由でのV4L2デバイスからのMJPEGキャプチャ
//
// # 仕様
// - FrameHub: 単一プロデューサー・複数コンシューマーの最新フレーム配信。
//   過去フレームのキューイングは行わず、遅いクライアントは中間フレームを
//   スキップする
// - Streamer: キャプチャゴルーチンは常に最大1つ。Start/Stopは冪等で、
//   複数のHTTPハンドラから同時に呼ばれても安全
// - 停止時・ソース障害時には待機中の全クライアントを必ず解放する
//
// # 前提要件
//   - ffmpeg: 画像キャプチャとストリーミングに使用
//     Raspberry Pi OS / Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
