// Package repository はデータ永続化のインターフェースを定義する。
package repository

import "context"

// KeyValueRepository はクライアント状態を保存する文字列キーバリューストアのインターフェース。
// セッショントークンなど、再起動後も保持したい小さな値の保存に使う。
type KeyValueRepository interface {
	// Get は指定キーの値を取得する。キーが存在しない場合はfoundがfalseとなる。
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set は指定キーに値を保存する。既存の値は上書きされる。
	Set(ctx context.Context, key, value string) error

	// Remove は指定キーを削除する。キーが存在しない場合もエラーにしない。
	Remove(ctx context.Context, key string) error
}
