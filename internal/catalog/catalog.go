// Package catalog は文書ストアに保存されたボイスモデルの一覧表示を提供する。
// 自分のモデルと公開モデルは同じCatalog型を異なるSourceで構成して扱う。
package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/voxly/internal/metrics"
	"github.com/hitoshi/voxly/internal/model"
	"github.com/hitoshi/voxly/internal/repository"
	"github.com/hitoshi/voxly/internal/session"
)

// 画面に表示する固定メッセージ
const (
	MsgSignInRequired    = "Sign in to view your models."
	MsgOwnedFetchFailed  = "Failed to fetch models."
	MsgPublicFetchFailed = "Failed to fetch public models."
)

const (
	titleField = "title"
	ownerField = "user_email"
)

// ErrSignInRequired は未ログインで所有モデル一覧を要求した場合のエラー。
var ErrSignInRequired = errors.New(MsgSignInRequired)

// FetchError は文書ストアからの取得失敗を表す。
// Messageは画面にそのまま表示できる固定文言。
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Selector は一覧の絞り込み方法を表す。
type Selector int

const (
	// OwnedBy はログインユーザーのメールアドレスで絞り込む。
	OwnedBy Selector = iota
	// Newest は全件を作成日時の降順で返す。
	Newest
)

// Source はカタログの取得元とフィールド対応を表す。
type Source struct {
	Name         string // メトリクス・ログ用の名前
	CollectionID string
	Selector     Selector
	IDField      string
	ImageField   string
	FetchError   string
}

// OwnedSource は自分のモデル一覧のSourceを返す。
func OwnedSource(collectionID string) Source {
	return Source{
		Name:         "owned",
		CollectionID: collectionID,
		Selector:     OwnedBy,
		IDField:      "model_id",
		ImageField:   "cover_image",
		FetchError:   MsgOwnedFetchFailed,
	}
}

// PublicSource は公開モデル一覧のSourceを返す。
func PublicSource(collectionID string) Source {
	return Source{
		Name:         "public",
		CollectionID: collectionID,
		Selector:     Newest,
		IDField:      "fish_model_id",
		ImageField:   "image_url",
		FetchError:   MsgPublicFetchFailed,
	}
}

// RequiresSignIn はログインが必要なSourceかどうかを返す。
func (s Source) RequiresSignIn() bool {
	return s.Selector == OwnedBy
}

// Sanitizer はエントリの表示値を無害化する。
type Sanitizer interface {
	Title(raw string) string
	ImageURL(raw string) string
}

// Catalog は1つのSourceからモデル一覧を取得する。
type Catalog struct {
	source    Source
	store     repository.DocumentStore
	sanitizer Sanitizer
	metrics   metrics.MetricsCollector
}

// New はCatalogを生成する。
func New(source Source, store repository.DocumentStore, sanitizer Sanitizer, mc metrics.MetricsCollector) *Catalog {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Catalog{
		source:    source,
		store:     store,
		sanitizer: sanitizer,
		metrics:   mc,
	}
}

// Source はCatalogの取得元を返す。
func (c *Catalog) Source() Source {
	return c.source
}

// List はモデル一覧を返す。
// 所有モデルのSourceで未ログインの場合は問い合わせを行わずErrSignInRequiredを返す。
// 取得失敗は*FetchErrorとして返し、再試行しない。
func (c *Catalog) List(ctx context.Context, state session.State) ([]model.VoiceModel, error) {
	var preds []repository.Predicate

	switch c.source.Selector {
	case OwnedBy:
		if !state.SignedIn() {
			return nil, ErrSignInRequired
		}
		preds = append(preds, repository.Equal(ownerField, state.Email()))
	case Newest:
		preds = append(preds, repository.NewestFirst())
	}

	docs, err := c.store.ListDocuments(ctx, c.source.CollectionID, preds...)
	if err != nil {
		c.metrics.RecordCatalogFetchFailure(c.source.Name)
		slog.Error("failed to fetch catalog",
			slog.String("catalog", c.source.Name),
			slog.String("collection", c.source.CollectionID),
			slog.String("error", err.Error()),
		)
		return nil, &FetchError{Message: c.source.FetchError, Err: err}
	}

	models := make([]model.VoiceModel, 0, len(docs))
	for _, doc := range docs {
		models = append(models, c.toVoiceModel(doc))
	}
	return models, nil
}

// toVoiceModel は文書をVoiceModelに変換する。
// ID欄が空の文書は文書IDで代用する。
func (c *Catalog) toVoiceModel(doc repository.Document) model.VoiceModel {
	id := doc.String(c.source.IDField)
	if id == "" {
		id = doc.ID
	}
	return model.VoiceModel{
		ID:            id,
		Title:         c.sanitizer.Title(doc.String(titleField)),
		CoverImageURL: c.sanitizer.ImageURL(doc.String(c.source.ImageField)),
		CreatedAt:     doc.CreatedAt,
	}
}

// UserMessage はListのエラーを画面表示用の文言に変換する。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSignInRequired) {
		return MsgSignInRequired
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return MsgOwnedFetchFailed
}
