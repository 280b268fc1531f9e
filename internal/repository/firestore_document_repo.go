package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreCreatedAtField はFirestore文書に保存する作成日時フィールド名。
// 外部で作成された文書には存在しないため、クエリの並び替えには使わない。
const firestoreCreatedAtField = "created_at"

// FirestoreDocumentRepo はFirestoreを使用した文書ストア。
// コレクションは databases/{databaseID}/{collection} に配置する。
type FirestoreDocumentRepo struct {
	client     *firestore.Client
	databaseID string
}

// NewFirestoreDocumentRepo はFirestoreDocumentRepoを生成する。
func NewFirestoreDocumentRepo(client *firestore.Client, databaseID string) *FirestoreDocumentRepo {
	return &FirestoreDocumentRepo{client: client, databaseID: databaseID}
}

func (r *FirestoreDocumentRepo) collection(name string) *firestore.CollectionRef {
	return r.client.Collection("databases").Doc(r.databaseID).Collection(name)
}

// ListDocuments はコレクション内の文書を述語で絞り込み・並び替えて返す。
// 新しい順の指定は取得後に作成日時で並び替える。
// OrderByは並び替えフィールドを持たない文書を結果から除外する。
func (r *FirestoreDocumentRepo) ListDocuments(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	q := BuildQuery(preds...)

	fq := r.collection(collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.Limit > 0 && !q.NewestFirst {
		fq = fq.Limit(q.Limit)
	}

	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s (code=%s): %w", collection, status.Code(err), err)
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, snapshotToDocument(snap))
	}
	if q.NewestFirst {
		docs = sortNewestFirst(docs, q.Limit)
	}
	return docs, nil
}

// sortNewestFirst は作成日時の新しい順に並べ、limitが正なら先頭limit件に切り詰める。
func sortNewestFirst(docs []Document, limit int) []Document {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

// CreateDocument はFirestoreの自動採番IDで文書を作成する。
func (r *FirestoreDocumentRepo) CreateDocument(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	now := time.Now().UTC()

	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data[firestoreCreatedAtField] = now

	ref := r.collection(collection).NewDoc()
	if _, err := ref.Create(ctx, data); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return Document{}, fmt.Errorf("document %s in %s: %w: %w", ref.ID, collection, ErrDuplicateDocument, err)
		}
		return Document{}, fmt.Errorf("failed to create document in %s (code=%s): %w", collection, status.Code(err), err)
	}

	return Document{ID: ref.ID, CreatedAt: now, Fields: data}, nil
}

// snapshotToDocument はFirestoreのスナップショットをDocumentに変換する。
// created_atがない文書はFirestoreの作成時刻を使う。
func snapshotToDocument(snap *firestore.DocumentSnapshot) Document {
	doc := Document{
		ID:        snap.Ref.ID,
		CreatedAt: snap.CreateTime,
		Fields:    snap.Data(),
	}
	if t, ok := doc.Fields[firestoreCreatedAtField].(time.Time); ok {
		doc.CreatedAt = t
	}
	return doc
}

// compile-time interface check
var _ DocumentStore = (*FirestoreDocumentRepo)(nil)
