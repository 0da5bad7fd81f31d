package integration

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/documents"
	"github.com/docgate/docgate/internal/tenancy"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// memBlobStore keeps document bytes in memory so tests need no object store.
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (s *memBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memBlobStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (*url.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return url.Parse("https://blobs.test/" + key)
}

func (s *memBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func createUser(t *testing.T, pool *pgxpool.Pool, email string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, 'unused')
		RETURNING id
	`, email, strings.Split(email, "@")[0]).Scan(&id)
	require.NoError(t, err)
	return id
}

func addMember(t *testing.T, pool *pgxpool.Pool, tenantID, userID uuid.UUID, role access.Role) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO memberships (tenant_id, user_id, role)
		VALUES ($1, $2, $3)
	`, tenantID, userID, role)
	require.NoError(t, err)
}

func createTenant(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID, name, subdomain string) uuid.UUID {
	t.Helper()

	tenant, err := tenancy.NewService(pool).CreateWithOwner(context.Background(), name, subdomain, ownerID)
	require.NoError(t, err)
	return tenant.ID
}

func uploadDocument(t *testing.T, svc *documents.Service, tenantID, userID uuid.UUID, title string) *documents.Document {
	t.Helper()

	content := "contents of " + title
	doc, err := svc.Upload(context.Background(), tenantID, userID,
		title, title+".pdf", "application/pdf", int64(len(content)), strings.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, documents.StatusPending, doc.Status)
	return doc
}
