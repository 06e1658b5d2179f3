// Package download hands out one-time, short-lived download URLs for stored
// files. A token is "<fileId>__<random>"; it can be consumed at most once and
// is forgotten after the TTL whether or not it was used.
package download

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/logging"
	"github.com/dmitrijs2005/selva/internal/server/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = time.Minute

// randomBytes is the entropy of the random token suffix.
const randomBytes = 16

// FileLoader loads a stored file by id.
type FileLoader interface {
	Load(ctx context.Context, id int64) (fileName string, content []byte, err error)
}

// File is the result of a successful consumption.
type File struct {
	Name    string
	Content []byte
}

type Broker struct {
	tokens  *expirable.LRU[string, *sync.Mutex]
	files   FileLoader
	baseURL string
	metrics *metrics.Recorder
	logger  logging.Logger
}

type Option func(*Broker)

func WithMetrics(m *metrics.Recorder) Option {
	return func(b *Broker) {
		b.metrics = m
	}
}

func WithLogger(l logging.Logger) Option {
	return func(b *Broker) {
		b.logger = l
	}
}

// NewBroker creates a broker whose URLs start with baseURL. A non-positive
// ttl selects DefaultTTL.
func NewBroker(files FileLoader, baseURL string, ttl time.Duration, opts ...Option) *Broker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	b := &Broker{
		tokens:  expirable.NewLRU[string, *sync.Mutex](0, nil, ttl),
		files:   files,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logging.Nop(),
	}
	for _, o := range opts {
		o(b)
	}
	b.logger = b.logger.With("module", "download")
	return b
}

// Issue registers a new token for fileID and returns its download URL.
func (b *Broker) Issue(ctx context.Context, fileID int64) (string, error) {
	suffix, err := common.MakeRandHexString(randomBytes)
	if err != nil {
		return "", fmt.Errorf("mint download token: %w", err)
	}
	token := strconv.FormatInt(fileID, 10) + common.TokenSeparator + suffix

	b.tokens.Add(token, &sync.Mutex{})
	b.metrics.DownloadToken(metrics.TokenIssued)
	b.logger.Debug(ctx, "download token issued", "file_id", fileID)

	return b.URL(token), nil
}

// URL is the public address of a token.
func (b *Broker) URL(token string) string {
	return b.baseURL + "/file/" + token
}

// Consume returns the file behind token and invalidates the token. Unknown,
// expired, already consumed and malformed tokens all yield
// common.ErrorNotFound, as does a file that no longer exists. Storage
// failures are returned wrapped; the token is spent either way.
func (b *Broker) Consume(ctx context.Context, token string) (*File, error) {
	mu, ok := b.tokens.Get(token)
	if !ok {
		return nil, b.reject(ctx, "unknown")
	}

	mu.Lock()
	defer mu.Unlock()
	defer b.tokens.Remove(token)

	// A concurrent consumer may have won the race while we waited.
	if _, ok := b.tokens.Peek(token); !ok {
		return nil, b.reject(ctx, "gone")
	}

	fileID, err := ParseToken(token)
	if err != nil {
		return nil, b.reject(ctx, "malformed")
	}

	name, content, err := b.files.Load(ctx, fileID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, b.reject(ctx, "file missing")
	}
	if err != nil {
		b.metrics.DownloadToken(metrics.TokenFailed)
		b.logger.Error(ctx, "download token file load failed", "file_id", fileID, "error", err)
		return nil, fmt.Errorf("load file %d: %w", fileID, err)
	}

	b.metrics.DownloadToken(metrics.TokenConsumed)
	b.logger.Info(ctx, "download token consumed", "file_id", fileID)
	return &File{Name: name, Content: content}, nil
}

func (b *Broker) reject(ctx context.Context, reason string) error {
	b.metrics.DownloadToken(metrics.TokenRejected)
	b.logger.Debug(ctx, "download token rejected", "reason", reason)
	return common.ErrorNotFound
}

// ParseToken recovers the file id from the part before the first separator.
func ParseToken(token string) (int64, error) {
	idPart, rest, ok := strings.Cut(token, common.TokenSeparator)
	if !ok || rest == "" {
		return 0, fmt.Errorf("%w: token without separator", common.ErrInvalidToken)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad file id: %v", common.ErrInvalidToken, err)
	}
	return id, nil
}

// Len is the number of live tokens.
func (b *Broker) Len() int {
	return b.tokens.Len()
}
