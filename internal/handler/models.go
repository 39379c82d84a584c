package handler

import (
	"net/http"
	"strconv"
	"strings"

	"searchsync/internal/domain/models"
)

// documentQueryFromRequest maps list query parameters onto a DocumentQuery.
// Unknown enum values are passed through untouched; the query's own Validate
// rejects them downstream with a 400.
func documentQueryFromRequest(r *http.Request) *models.DocumentQuery {
	params := r.URL.Query()
	q := &models.DocumentQuery{
		Hash:   params.Get("hash"),
		Search: params.Get("q"),
		State:  models.DocumentState(params.Get("state")),
		Sort:   models.DocumentSort(params.Get("sort")),
		Take:   intParam(params.Get("take")),
		Skip:   intParam(params.Get("skip")),
	}
	if id, err := strconv.ParseInt(params.Get("filestore_id"), 10, 64); err == nil && id > 0 {
		q.FilestoreID = id
	}
	q.IDs = parseIDList(params.Get("ids"))
	return q
}

// filestoreQueryFromRequest maps list query parameters onto a FilestoreQuery.
func filestoreQueryFromRequest(r *http.Request) *models.FilestoreQuery {
	params := r.URL.Query()
	return &models.FilestoreQuery{
		Search: params.Get("q"),
		Sort:   models.FilestoreSort(params.Get("sort")),
		Take:   intParam(params.Get("take")),
		Skip:   intParam(params.Get("skip")),
	}
}

// intParam parses an integer query parameter, treating absent or malformed
// values as zero so the query defaults apply.
func intParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// parseIDList splits a comma-separated id list, dropping malformed entries
func parseIDList(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
