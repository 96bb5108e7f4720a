package post

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jmylchreest/froid/internal/cleaner"
	"github.com/jmylchreest/froid/pkg/fetcher"
	"github.com/jmylchreest/froid/pkg/model"
)

// count decodes a counter the endpoint serves either as a number or as a
// numeric string.
type count int64

func (c *count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*c = 0
			return nil
		}
		n, ok := cleaner.ParseCount(s)
		if !ok {
			return errors.New("not a number: " + strconv.Quote(s))
		}
		*c = count(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*c = count(f)
	return nil
}

type statsRow struct {
	PostID        count `json:"post_id"`
	Views         count `json:"views"`
	Likes         count `json:"likes"`
	Download      count `json:"download"`
	DownloadMonth count `json:"download_month"`
	DownloadWeek  count `json:"download_week"`
	DownloadToday count `json:"download_today"`
}

type statsEnvelope struct {
	Data []statsRow `json:"data"`
}

// FetchStats retrieves the statistics endpoint for a post.
func (p *Parser) FetchStats(ctx context.Context, id string) (model.PostStatistics, error) {
	body, err := p.api.Fetch(ctx, p.site.Stats(id), fetcher.Options{
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		// the endpoint answers 400 for unknown posts
		if fetcher.IsStatus(err, http.StatusBadRequest, http.StatusNotFound) {
			return model.PostStatistics{}, &Error{Kind: KindNotFound, ID: id, Detail: "no statistics", Err: err}
		}
		return model.PostStatistics{}, &Error{Kind: KindUpstreamUnavailable, ID: id, Err: err}
	}

	var env statsEnvelope
	if err := json.Unmarshal(body.Data, &env); err != nil {
		return model.PostStatistics{}, &Error{Kind: KindUnexpectedSchema, ID: id, Detail: "statistics payload", Err: err}
	}
	if len(env.Data) == 0 {
		return model.PostStatistics{}, &Error{Kind: KindNotFound, ID: id, Detail: "no statistics"}
	}

	row := env.Data[0]
	postID := id
	if row.PostID > 0 {
		postID = strconv.FormatInt(int64(row.PostID), 10)
	}
	return model.PostStatistics{
		PostID:           postID,
		URL:              p.site.PostURL(postID),
		Views:            int64(row.Views),
		Likes:            int64(row.Likes),
		Downloads:        int64(row.Download),
		MonthlyDownloads: int64(row.DownloadMonth),
		WeeklyDownloads:  int64(row.DownloadWeek),
		TodayDownloads:   int64(row.DownloadToday),
	}, nil
}
