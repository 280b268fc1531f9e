package database

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirestoreConfig はFirestoreクライアントの接続設定。
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string // 空の場合はApplication Default Credentialsを使用する
}

// OpenFirestore はFirebase Admin SDKを初期化し、Firestoreクライアントを返す。
func OpenFirestore(ctx context.Context, cfg FirestoreConfig) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		slog.Info("initializing firebase with credentials file",
			slog.String("path", cfg.CredentialsFile),
		)
	} else {
		slog.Info("initializing firebase with application default credentials")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return client, nil
}
