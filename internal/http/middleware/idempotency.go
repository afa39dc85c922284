package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
)

type storedResponse struct {
	status      int
	contentType string
	body        []byte
}

// IdempotencyStore хранит успешные ответы на POST запросы по ключу клиента.
// Повтор с тем же ключом получает сохранённый ответ, а use case второй раз не вызывается.
type IdempotencyStore struct {
	cache *expirable.LRU[string, storedResponse]

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewIdempotencyStore(size int, ttl time.Duration) *IdempotencyStore {
	if size <= 0 {
		size = 10000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{
		cache:    expirable.NewLRU[string, storedResponse](size, nil, ttl),
		inFlight: make(map[string]struct{}),
	}
}

// begin возвращает сохранённый ответ, если он есть. Иначе занимает ключ;
// busy=true значит, что запрос с этим ключом ещё выполняется.
func (s *IdempotencyStore) begin(key string) (stored storedResponse, found, busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.cache.Get(key); ok {
		return stored, true, false
	}
	if _, ok := s.inFlight[key]; ok {
		return storedResponse{}, false, true
	}
	s.inFlight[key] = struct{}{}
	return storedResponse{}, false, false
}

func (s *IdempotencyStore) finish(key string, resp *storedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if resp != nil {
		s.cache.Add(key, *resp)
	}
	delete(s.inFlight, key)
}

// IdempotencyMiddleware повторяет ответ на POST с уже виденным Idempotency-Key.
// Ключ действует в рамках пользователя и пути; ошибки не запоминаются, их можно повторить.
// Должен стоять после AuthMiddleware.
func IdempotencyMiddleware(store *IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(IdempotencyKeyHeader)
		if raw == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(raw) > maxIdempotencyKeyLen {
			response.BadRequest(c, "Idempotency-Key слишком длинный")
			return
		}

		scope := "ip:" + c.ClientIP()
		if actor, ok := CurrentActor(c); ok {
			scope = "user:" + actor.ID.String()
		}
		key := scope + "|" + c.Request.URL.Path + "|" + raw

		stored, found, busy := store.begin(key)
		if found {
			c.Header(IdempotencyReplayedHeader, "true")
			c.Data(stored.status, stored.contentType, stored.body)
			c.Abort()
			return
		}
		if busy {
			response.Error(c, apperror.New(apperror.ErrCodeConflict, "запрос с таким Idempotency-Key ещё выполняется"))
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		var resp *storedResponse
		defer func() { store.finish(key, resp) }()

		c.Next()

		if status := recorder.Status(); status >= http.StatusOK && status < http.StatusMultipleChoices {
			resp = &storedResponse{
				status:      status,
				contentType: recorder.Header().Get("Content-Type"),
				body:        recorder.body.Bytes(),
			}
		}
	}
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
