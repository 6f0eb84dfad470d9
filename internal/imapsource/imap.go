// Package imapsource searches a mailbox over IMAP for report messages.
package imapsource

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog"

	"pledgetally/internal/mailparse"
	"pledgetally/internal/model"
	"pledgetally/internal/util"
)

// Config holds connection settings.
type Config struct {
	Server   string // host:port, TLS
	Username string
	Password string
	Mailbox  string
	Operator string // overrides the address derived from Username
}

// Source is a model message source backed by one IMAP mailbox.
type Source struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Source {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "Sent"
	}
	return &Source{cfg: cfg, log: log}
}

func (s *Source) Name() string { return "imap" }

// OperatorAddress is the configured operator, or the login name when it is
// an email address.
func (s *Source) OperatorAddress(ctx context.Context) (string, error) {
	if s.cfg.Operator != "" {
		return s.cfg.Operator, nil
	}
	return util.NormalizeAddress(s.cfg.Username), nil
}

func (s *Source) dial() (*imapclient.Client, error) {
	c, err := imapclient.DialTLS(s.cfg.Server, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s failed: %w", s.cfg.Server, err)
	}
	if err := c.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		c.Close()
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return c, nil
}

// Search finds messages addressed to the recipient (To or Cc) since the
// cutoff day and fetches their full bodies, in UID order.
func (s *Source) Search(ctx context.Context, q model.Query) ([]model.RawMessage, error) {
	c, err := s.dial()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	// Unblock pending commands when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	if _, err := c.Select(s.cfg.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("SELECT %s failed: %w", s.cfg.Mailbox, err)
	}

	searchData, err := c.UIDSearch(Criteria(q), nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("SEARCH failed: %w", err)
	}
	uids := searchData.AllUIDs()
	s.log.Debug().Int("count", len(uids)).Str("mailbox", s.cfg.Mailbox).Msg("imap search complete")
	if len(uids) == 0 {
		return nil, nil
	}

	var uidSet imap.UIDSet
	uidSet.AddNum(uids...)
	fetchCmd := c.Fetch(uidSet, &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{{Peek: true}},
	})

	var out []model.RawMessage
	for {
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		var uid imap.UID
		var raw []byte
		for {
			item := msgData.Next()
			if item == nil {
				break
			}
			switch it := item.(type) {
			case imapclient.FetchItemDataUID:
				uid = it.UID
			case imapclient.FetchItemDataBodySection:
				b, err := io.ReadAll(it.Literal)
				if err == nil {
					raw = b
				}
			}
		}
		if len(raw) == 0 {
			continue
		}
		msg, err := mailparse.Parse(raw)
		if err != nil {
			s.log.Warn().Err(err).Uint32("uid", uint32(uid)).Msg("skipping unparsable message")
			continue
		}
		msg.ID = fmt.Sprintf("%s:%d", s.cfg.Mailbox, uid)
		out = append(out, msg)
	}
	if err := fetchCmd.Close(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("FETCH failed: %w", err)
	}
	return out, nil
}

// Criteria builds the SEARCH criteria for a query. IMAP SINCE has day
// granularity, so the exact cutoff is applied later by the eligibility
// filter.
func Criteria(q model.Query) *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{}
	if r := strings.TrimSpace(q.Recipient); r != "" {
		header := func(key string) imap.SearchCriteria {
			return imap.SearchCriteria{Header: []imap.SearchCriteriaHeaderField{{Key: key, Value: r}}}
		}
		// To OR (Cc OR Bcc); sent copies keep their Bcc header.
		ccOrBcc := imap.SearchCriteria{Or: [][2]imap.SearchCriteria{{header("Cc"), header("Bcc")}}}
		criteria.Or = append(criteria.Or, [2]imap.SearchCriteria{header("To"), ccOrBcc})
	}
	if q.Cutoff != nil {
		c := *q.Cutoff
		criteria.Since = time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, c.Location())
	}
	return criteria
}
