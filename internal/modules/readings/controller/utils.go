package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultLatestLimit   = 1
	defaultReadingsLimit = 100
	maxLimit             = 1000
)

type readingsQuery struct {
	from, to time.Time
	limit    int
	offset   int
}

func parseReadingsQuery(r *http.Request) (readingsQuery, error) {
	q := r.URL.Query()
	var out readingsQuery

	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return readingsQuery{}, errors.New("invalid 'from' (expected RFC3339)")
		}
		out.from = t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return readingsQuery{}, errors.New("invalid 'to' (expected RFC3339)")
		}
		out.to = t
	}
	if !out.from.IsZero() && !out.to.IsZero() && out.from.After(out.to) {
		return readingsQuery{}, errors.New("'from' must be <= 'to'")
	}

	limit, err := parseLimit(q.Get("limit"), defaultReadingsLimit)
	if err != nil {
		return readingsQuery{}, err
	}
	out.limit = limit

	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return readingsQuery{}, errors.New("invalid 'offset' (expected integer)")
		}
		if n < 0 {
			return readingsQuery{}, errors.New("'offset' must be >= 0")
		}
		out.offset = n
	}

	return out, nil
}

func parseLatestQuery(r *http.Request) (int, error) {
	return parseLimit(r.URL.Query().Get("limit"), defaultLatestLimit)
}

func parseLimit(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxLimit {
		return 0, errors.New("'limit' must be <= 1000")
	}
	return n, nil
}
