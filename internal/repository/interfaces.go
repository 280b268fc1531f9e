// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/voxly/internal/model"
)

// DocumentStore はコレクション単位で文書を保存する文書ストアのインターフェース。
// PostgreSQL（documentsテーブル）とFirestoreの実装を持つ。
type DocumentStore interface {
	// ListDocuments はコレクション内の文書を述語で絞り込み・並び替えて返す。
	// 該当がない場合は空スライスを返す。
	ListDocuments(ctx context.Context, collection string, preds ...Predicate) ([]Document, error)

	// CreateDocument は自動採番IDで文書を作成し、作成された文書を返す。
	CreateDocument(ctx context.Context, collection string, fields map[string]any) (Document, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。見つからない場合・期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}
