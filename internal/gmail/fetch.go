package gmail

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	gmailv1 "google.golang.org/api/gmail/v1"

	"pledgetally/internal/mailparse"
	"pledgetally/internal/model"
	"pledgetally/internal/util"
)

const sourceName = "gmail"

// Progress is reported while message bodies are fetched.
type Progress struct {
	Phase string
	Done  int
	Total int
}

// MessageCache stores fetched messages so repeat scans only download new
// ones. Implementations may be nil-safe no-ops.
type MessageCache interface {
	UpsertMessages(ctx context.Context, source string, msgs []model.RawMessage) error
	GetMessagesByIDs(ctx context.Context, source string, ids []string) (map[string]model.RawMessage, error)
}

// Source searches the authenticated user's mailbox.
type Source struct {
	svc      *gmailv1.Service
	cache    MessageCache
	workers  int
	log      zerolog.Logger
	progress func(Progress)
}

// NewSource wraps an authenticated service. cache may be nil.
func NewSource(svc *gmailv1.Service, cache MessageCache, workers int, log zerolog.Logger) *Source {
	if workers <= 0 {
		workers = 16
	}
	return &Source{svc: svc, cache: cache, workers: workers, log: log}
}

// OnProgress registers a callback for fetch progress.
func (s *Source) OnProgress(fn func(Progress)) { s.progress = fn }

func (s *Source) Name() string { return sourceName }

// OperatorAddress returns the mailbox owner's address from the profile.
func (s *Source) OperatorAddress(ctx context.Context) (string, error) {
	p, err := s.svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	return p.EmailAddress, nil
}

// BuildQuery renders a Gmail search string for the query. The recipient may
// appear in any of To, Cc or Bcc.
func BuildQuery(q model.Query) string {
	r := strings.TrimSpace(q.Recipient)
	if strings.ContainsAny(r, " \t\"") {
		r = `"` + strings.ReplaceAll(r, `"`, "") + `"`
	}
	parts := []string{fmt.Sprintf("{to:%s cc:%s bcc:%s}", r, r, r)}
	if nt := q.Range.GmailQuery(); nt != "" {
		parts = append(parts, nt)
	}
	return strings.Join(parts, " ")
}

// Search lists matching message IDs, fetches the ones not already cached,
// and returns all of them in listing order (newest first).
func (s *Source) Search(ctx context.Context, q model.Query) ([]model.RawMessage, error) {
	query := BuildQuery(q)
	ids, err := s.listIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("query", query).Int("count", len(ids)).Msg("gmail search complete")

	have := map[string]model.RawMessage{}
	if s.cache != nil {
		have, err = s.cache.GetMessagesByIDs(ctx, sourceName, ids)
		if err != nil {
			s.log.Warn().Err(err).Msg("message cache read failed")
			have = map[string]model.RawMessage{}
		}
	}
	missing := lo.Filter(ids, func(id string, _ int) bool {
		_, ok := have[id]
		return !ok
	})

	fetched, err := s.fetchMessages(ctx, missing)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(fetched) > 0 {
		if err := s.cache.UpsertMessages(ctx, sourceName, lo.Values(fetched)); err != nil {
			s.log.Warn().Err(err).Msg("message cache write failed")
		}
	}

	out := make([]model.RawMessage, 0, len(ids))
	for _, id := range ids {
		if m, ok := have[id]; ok {
			out = append(out, m)
		} else if m, ok := fetched[id]; ok {
			out = append(out, m)
		}
	}
	s.log.Info().Int("cached", len(have)).Int("fetched", len(fetched)).Msg("gmail messages ready")
	return out, nil
}

func (s *Source) listIDs(ctx context.Context, query string) ([]string, error) {
	call := s.svc.Users.Messages.List("me").
		Q(query).
		MaxResults(500) // page size, not a cap overall

	var ids []string
	err := call.Pages(ctx, func(resp *gmailv1.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return lo.Uniq(ids), nil
}

// fetchMessages downloads full messages with a bounded worker pool. The
// first error stops the batch.
func (s *Source) fetchMessages(ctx context.Context, ids []string) (map[string]model.RawMessage, error) {
	out := make(map[string]model.RawMessage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		msg model.RawMessage
		err error
	}
	jobs := make(chan string)
	results := make(chan result, s.workers)

	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			for id := range jobs {
				msg, err := s.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
				if err != nil {
					results <- result{err: fmt.Errorf("get message %s: %w", id, err)}
					continue
				}
				results <- result{msg: messageFromGmail(msg)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range ids {
			select {
			case <-ctx.Done():
				return
			case jobs <- id:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		out[r.msg.ID] = r.msg
		if s.progress != nil && (len(out)%25 == 0 || len(out) == len(ids)) {
			s.progress(Progress{Phase: "fetch", Done: len(out), Total: len(ids)})
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// messageFromGmail maps a full-format API message onto a RawMessage.
func messageFromGmail(msg *gmailv1.Message) model.RawMessage {
	m := model.RawMessage{ID: msg.Id}
	var date string
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				m.From = h.Value
			case "to":
				m.To = util.SplitAddressList(h.Value)
			case "cc":
				m.Cc = util.SplitAddressList(h.Value)
			case "bcc":
				m.Bcc = util.SplitAddressList(h.Value)
			case "subject":
				m.Subject = h.Value
			case "date":
				date = h.Value
			}
		}
		m.Body = mailparse.BodyText(findBody(msg.Payload, "text/plain"), findBody(msg.Payload, "text/html"))
	}
	if m.Body == "" {
		m.Body = msg.Snippet
	}
	if t, ok := parseDate(date); ok {
		m.Date = t
	} else if msg.InternalDate > 0 {
		m.Date = time.UnixMilli(msg.InternalDate).UTC()
	}
	return m
}

func parseDate(h string) (time.Time, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return time.Time{}, false
	}
	// Strip trailing comments such as "(UTC)".
	if i := strings.Index(h, " ("); i > 0 {
		h = h[:i]
	}
	// Try common formats Gmail uses in Date header.
	layouts := []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"2 Jan 2006 15:04:05 -0700",
		time.RFC822Z,
		time.RFC822,
		time.RFC850,
		time.RFC3339,
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, h); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
