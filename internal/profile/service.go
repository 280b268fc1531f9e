// Package profile はユーザープロフィール（契約プランと文字数クォータ）の取得・初期作成を提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/voxly/internal/metrics"
	"github.com/hitoshi/voxly/internal/model"
	"github.com/hitoshi/voxly/internal/repository"
)

// プロフィール文書のフィールド名
const (
	fieldEmail           = "user_email"
	fieldName            = "name"
	fieldPlanType        = "plan_type"
	fieldIsActive        = "is_active"
	fieldCharAllowed     = "char_allowed"
	fieldCharRemaining   = "char_remaining"
	fieldStartDate       = "current_plan_start_date"
	fieldExpiryDate      = "current_plan_expiry_date"
	fieldActiveProductID = "active_product_id"
)

// Service はプロフィールのサービス層。
type Service struct {
	store      repository.DocumentStore
	collection string
	metrics    metrics.MetricsCollector
	now        func() time.Time

	// 同じメールアドレスの同時初回ログインを1回の作成にまとめる
	ensureGroup singleflight.Group
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store repository.DocumentStore, collection string, mc metrics.MetricsCollector) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		store:      store,
		collection: collection,
		metrics:    mc,
		now:        time.Now,
	}
}

// Find はメールアドレスに一致するプロフィールを返す。存在しない場合はNoProfileを返す。
// 文書ストアへの書き込みは行わない。
func (s *Service) Find(ctx context.Context, email string) (model.MaybeProfile, error) {
	docs, err := s.store.ListDocuments(ctx, s.collection, repository.Equal(fieldEmail, email), repository.Limit(1))
	if err != nil {
		return model.NoProfile(), fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if len(docs) == 0 {
		return model.NoProfile(), nil
	}
	return model.SomeProfile(fromDocument(docs[0])), nil
}

// Ensure はユーザーのプロフィールを返す。存在しない場合は既定値で1件だけ作成する。
// 同じメールアドレスへの同時呼び出しは1回の取得・作成を共有する。
// 同じメールアドレスの文書が複数ある場合は最初の1件を使用する。
func (s *Service) Ensure(ctx context.Context, user model.User) (model.Profile, error) {
	if user.Email == "" {
		return model.Profile{}, fmt.Errorf("email is required")
	}

	v, err, shared := s.ensureGroup.Do(user.Email, func() (any, error) {
		return s.ensure(ctx, user)
	})
	if err != nil {
		return model.Profile{}, err
	}
	if shared {
		slog.Debug("profile ensure shared", slog.String("email", user.Email))
	}
	return v.(model.Profile), nil
}

func (s *Service) ensure(ctx context.Context, user model.User) (model.Profile, error) {
	existing, err := s.Find(ctx, user.Email)
	if err != nil {
		return model.Profile{}, err
	}
	if p, ok := existing.Get(); ok {
		return p, nil
	}

	start := s.now().UTC()
	fields := map[string]any{
		fieldEmail:         user.Email,
		fieldName:          user.Name,
		fieldPlanType:      model.DefaultPlanType,
		fieldIsActive:      true,
		fieldCharAllowed:   model.DefaultCharAllowance,
		fieldCharRemaining: model.DefaultCharAllowance,
		fieldStartDate:     start.Format(model.ProfileTimeLayout),
		fieldExpiryDate:    start.AddDate(0, 1, 0).Format(model.ProfileTimeLayout),
	}

	doc, err := s.store.CreateDocument(ctx, s.collection, fields)
	if errors.Is(err, repository.ErrDuplicateDocument) {
		// 別プロセスが先に作成した
		return s.findCreated(ctx, user.Email)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
	}

	s.metrics.RecordProfileCreated()
	slog.Info("profile created",
		slog.String("email", user.Email),
		slog.String("profile_id", doc.ID),
	)

	return fromDocument(doc), nil
}

// findCreated は一意制約違反の後に既存のプロフィールを取得し直す。
func (s *Service) findCreated(ctx context.Context, email string) (model.Profile, error) {
	existing, err := s.Find(ctx, email)
	if err != nil {
		return model.Profile{}, err
	}
	p, ok := existing.Get()
	if !ok {
		return model.Profile{}, fmt.Errorf("プロフィールが重複しましたが取得できません: %s", email)
	}
	return p, nil
}

// fromDocument は文書をProfileに変換する。
// 欠落・型不一致のフィールドはゼロ値のまま残る。
func fromDocument(doc repository.Document) model.Profile {
	p := model.Profile{
		ID:              doc.ID,
		Email:           doc.String(fieldEmail),
		Name:            doc.String(fieldName),
		PlanType:        doc.String(fieldPlanType),
		ActiveProductID: doc.String(fieldActiveProductID),
	}
	p.IsActive, _ = doc.Bool(fieldIsActive)
	p.CharAllowed, _ = doc.Int(fieldCharAllowed)
	p.CharRemaining, _ = doc.Int(fieldCharRemaining)
	p.StartDate, _ = doc.Time(fieldStartDate, model.ProfileTimeLayout)
	p.ExpiryDate, _ = doc.Time(fieldExpiryDate, model.ProfileTimeLayout)
	return p
}
