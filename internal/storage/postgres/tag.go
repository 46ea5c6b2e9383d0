package postgres

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"leetcode_deck/internal/domain"
)

type TagStore struct {
	db *sqlx.DB
}

func NewTagStore(db *sqlx.DB) *TagStore {
	return &TagStore{db: db}
}

// UpsertBatch inserts tags or refreshes their names. Rows are written in slug
// order so concurrent batches lock tags in the same order.
func (s *TagStore) UpsertBatch(ctx context.Context, tags []domain.Tag) error {
	tags = uniqueTags(tags)
	if len(tags) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO tags (slug, name) VALUES ")
	valueArgs := make([]interface{}, 0, len(tags)*2)

	for i, tag := range tags {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($")
		sb.WriteString(strconv.Itoa(i*2 + 1))
		sb.WriteString(", $")
		sb.WriteString(strconv.Itoa(i*2 + 2))
		sb.WriteString(")")
		valueArgs = append(valueArgs, tag.Slug, tag.Name)
	}
	sb.WriteString(" ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name WHERE tags.name IS DISTINCT FROM EXCLUDED.name")

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), valueArgs...)
	return wrapErr("upsert tags", err)
}

// LinkToProblem adds problem-tag links. Existing links are left alone.
func (s *TagStore) LinkToProblem(ctx context.Context, problemID int64, tagSlugs []string) error {
	if len(tagSlugs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO problem_tags (problem_id, tag_slug) VALUES ")
	valueArgs := make([]interface{}, 0, len(tagSlugs)+1)
	valueArgs = append(valueArgs, problemID)

	for i, slug := range tagSlugs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($1, $")
		sb.WriteString(strconv.Itoa(i + 2))
		sb.WriteString(")")
		valueArgs = append(valueArgs, slug)
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), valueArgs...)
	return wrapErr("link tags", err)
}

func (s *TagStore) GetByProblemID(ctx context.Context, problemID int64) ([]domain.Tag, error) {
	query := `
		SELECT t.slug, t.name
		FROM tags t
		INNER JOIN problem_tags pt ON pt.tag_slug = t.slug
		WHERE pt.problem_id = $1
		ORDER BY t.slug`

	var tags []domain.Tag
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &tags, query, problemID)
	return tags, wrapErr("get tags", err)
}

func uniqueTags(tags []domain.Tag) []domain.Tag {
	seen := make(map[string]struct{}, len(tags))
	out := make([]domain.Tag, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t.Slug]; ok || t.Slug == "" {
			continue
		}
		seen[t.Slug] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
