package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const pgUniqueViolation = "23505"

// PostgresDocumentRepo はPostgreSQLのdocumentsテーブルを使用した文書ストア。
// 文書のフィールドはJSONB列dataに保存する。
type PostgresDocumentRepo struct {
	db         *sql.DB
	databaseID string
}

// NewPostgresDocumentRepo はPostgresDocumentRepoを生成する。
// databaseIDは論理データベースの識別子で、同一テーブル内の名前空間として扱う。
func NewPostgresDocumentRepo(db *sql.DB, databaseID string) *PostgresDocumentRepo {
	return &PostgresDocumentRepo{db: db, databaseID: databaseID}
}

// ListDocuments はコレクション内の文書を述語で絞り込み・並び替えて返す。
func (r *PostgresDocumentRepo) ListDocuments(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	query, args := buildListQuery(r.databaseID, collection, BuildQuery(preds...))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			doc  Document
			data []byte
		)
		if err := rows.Scan(&doc.ID, &data, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal(data, &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// CreateDocument はUUIDを採番して文書を作成する。
func (r *PostgresDocumentRepo) CreateDocument(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode document: %w", err)
	}

	doc := Document{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (id, database_id, collection_id, data, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		doc.ID, r.databaseID, collection, data, doc.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return Document{}, fmt.Errorf("document conflicts in %s (%s): %w", collection, pqErr.Constraint, ErrDuplicateDocument)
		}
		return Document{}, fmt.Errorf("failed to create document in %s: %w", collection, err)
	}

	// 読み出し時と同じ型になるようJSONを経由して複製する
	if err := json.Unmarshal(data, &doc.Fields); err != nil {
		return Document{}, fmt.Errorf("failed to decode document: %w", err)
	}

	return doc, nil
}

// buildListQuery はQueryからSQLとプレースホルダ引数を組み立てる。
// フィールド名もプレースホルダで渡し、data->>$n で比較する。
func buildListQuery(databaseID, collection string, q Query) (string, []any) {
	var sb strings.Builder
	args := []any{databaseID, collection}

	sb.WriteString(`SELECT id, data, created_at FROM documents WHERE database_id = $1 AND collection_id = $2`)

	for _, f := range q.Filters {
		args = append(args, f.Field, filterValue(f.Value))
		fmt.Fprintf(&sb, " AND data->>$%d = $%d", len(args)-1, len(args))
	}

	if q.NewestFirst {
		sb.WriteString(" ORDER BY created_at DESC")
	} else {
		sb.WriteString(" ORDER BY created_at ASC")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args
}

// filterValue は比較値を data->> の結果（text）と比較できる文字列に変換する。
func filterValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

// compile-time interface check
var _ DocumentStore = (*PostgresDocumentRepo)(nil)
