package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateDocument は一意制約に違反する文書を作成しようとした場合のエラー。
var ErrDuplicateDocument = errors.New("document already exists")

// Document は文書ストアから取得した1件の文書を表す。
type Document struct {
	ID        string
	CreatedAt time.Time
	Fields    map[string]any
}

// String は文字列フィールドを返す。存在しないか文字列でない場合は空文字列を返す。
func (d Document) String(key string) string {
	switch v := d.Fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int は数値フィールドをintで返す。
// JSON由来のfloat64とFirestore由来のint64の両方を受け付ける。
func (d Document) Int(key string) (int, bool) {
	switch v := d.Fields[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// Bool は真偽値フィールドを返す。
func (d Document) Bool(key string) (bool, bool) {
	v, ok := d.Fields[key].(bool)
	return v, ok
}

// Time は日時フィールドを返す。time.Timeと指定レイアウトの文字列の両方を受け付ける。
func (d Document) Time(key, layout string) (time.Time, bool) {
	switch v := d.Fields[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(layout, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// Query は文書一覧取得の条件を表す。
type Query struct {
	Filters     []Filter
	NewestFirst bool
	Limit       int
}

// Filter はフィールドの等価条件を表す。
type Filter struct {
	Field string
	Value any
}

// Predicate はQueryを組み立てる関数。
type Predicate func(q *Query)

// Equal はfieldがvalueに等しい文書に絞り込む。
func Equal(field string, value any) Predicate {
	return func(q *Query) {
		q.Filters = append(q.Filters, Filter{Field: field, Value: value})
	}
}

// NewestFirst は作成日時の降順に並び替える。
func NewestFirst() Predicate {
	return func(q *Query) {
		q.NewestFirst = true
	}
}

// Limit は取得件数の上限を設定する。0以下は上限なし。
func Limit(n int) Predicate {
	return func(q *Query) {
		q.Limit = n
	}
}

// BuildQuery は述語を適用したQueryを返す。
func BuildQuery(preds ...Predicate) Query {
	var q Query
	for _, p := range preds {
		p(&q)
	}
	return q
}
