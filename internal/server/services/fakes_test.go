package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/dbx"
	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/logging"
	"github.com/dmitrijs2005/selva/internal/server/config"
	"github.com/dmitrijs2005/selva/internal/server/forms"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/dmitrijs2005/selva/internal/server/repositories/baseprofiles"
	"github.com/dmitrijs2005/selva/internal/server/repositories/externalprofiles"
	"github.com/dmitrijs2005/selva/internal/server/repositories/files"
	"github.com/dmitrijs2005/selva/internal/server/repositories/integrations"
	"github.com/dmitrijs2005/selva/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// newSQLiteDB returns a database whose transactions always succeed; the
// fakes below keep their state in memory.
func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func textPart(name, value string) forms.Part {
	return forms.Part{Name: name, Content: []byte(value)}
}

func filePart(name, fileName, content string) forms.Part {
	return forms.Part{Name: name, FileName: fileName, Content: []byte(content), IsFile: true}
}

// fakeRepoManager keeps every table in memory. failures maps a method name
// such as "BaseProfiles.Create" to the error it returns.
type fakeRepoManager struct {
	mu sync.Mutex

	users    map[int64]*models.User
	base     map[int64]*models.BaseProfile
	external map[int64]*models.ExternalProfile
	owners   map[int64]int64
	ints     map[int64]*models.ExternalIntegration
	fileRows map[int64]*models.File
	lastID   int64
	failures map[string]error
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    map[int64]*models.User{},
		base:     map[int64]*models.BaseProfile{},
		external: map[int64]*models.ExternalProfile{},
		owners:   map[int64]int64{},
		ints:     map[int64]*models.ExternalIntegration{},
		fileRows: map[int64]*models.File{},
		failures: map[string]error{},
	}
}

func (m *fakeRepoManager) fail(method string) error {
	return m.failures[method]
}

func (m *fakeRepoManager) nextID() int64 {
	m.lastID++
	return m.lastID
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository { return &fakeUsers{m} }
func (m *fakeRepoManager) BaseProfiles(dbx.DBTX) baseprofiles.Repository {
	return &fakeBaseProfiles{m}
}
func (m *fakeRepoManager) ExternalProfiles(dbx.DBTX) externalprofiles.Repository {
	return &fakeExternalProfiles{m}
}
func (m *fakeRepoManager) Integrations(dbx.DBTX) integrations.Repository {
	return &fakeIntegrations{m}
}
func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository { return &fakeFiles{m} }

type fakeUsers struct{ m *fakeRepoManager }

func (r *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.m.users {
		if existing.Username == u.Username {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = r.m.nextID()
	c.CreatedAt = time.Now()
	r.m.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Users.GetUserByLogin"); err != nil {
		return nil, err
	}
	for _, u := range r.m.users {
		if u.Username == login {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

// Delete cascades to profiles like the foreign keys do.
func (r *fakeUsers) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.users, id)
	delete(r.m.base, id)
	for pid, owner := range r.m.owners {
		if owner == id {
			delete(r.m.external, pid)
			delete(r.m.owners, pid)
		}
	}
	return nil
}

type fakeBaseProfiles struct{ m *fakeRepoManager }

func (r *fakeBaseProfiles) Create(_ context.Context, userID int64, fm fields.Map) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("BaseProfiles.Create"); err != nil {
		return 0, err
	}
	if _, ok := r.m.base[userID]; ok {
		return 0, common.ErrorAlreadyExists
	}
	p := &models.BaseProfile{ID: r.m.nextID(), UserID: userID, Fields: fm.Clone()}
	r.m.base[userID] = p
	return p.ID, nil
}

func (r *fakeBaseProfiles) GetByUserID(_ context.Context, userID int64) (*models.BaseProfile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.base[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.BaseProfile{ID: p.ID, UserID: p.UserID, Fields: p.Fields.Clone()}, nil
}

func (r *fakeBaseProfiles) GetByUserIDForUpdate(ctx context.Context, userID int64) (*models.BaseProfile, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *fakeBaseProfiles) UpdateFields(_ context.Context, userID int64, fm fields.Map) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("BaseProfiles.UpdateFields"); err != nil {
		return err
	}
	p, ok := r.m.base[userID]
	if !ok {
		return common.ErrorNotFound
	}
	p.Fields = fm.Clone()
	return nil
}

type fakeExternalProfiles struct{ m *fakeRepoManager }

func (r *fakeExternalProfiles) Create(_ context.Context, userID, integrationID int64, fm fields.Map) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	base, ok := r.m.base[userID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	if _, ok := r.m.ints[integrationID]; !ok {
		return 0, common.ErrorNotFound
	}
	for _, p := range r.m.external {
		if p.BaseProfileID == base.ID && p.ExternalIntegrationID == integrationID {
			return 0, common.ErrorAlreadyExists
		}
	}
	p := &models.ExternalProfile{
		ID:                    r.m.nextID(),
		BaseProfileID:         base.ID,
		ExternalIntegrationID: integrationID,
		Fields:                fm.Clone(),
	}
	r.m.external[p.ID] = p
	r.m.owners[p.ID] = userID
	return p.ID, nil
}

func (r *fakeExternalProfiles) GetByID(_ context.Context, userID, profileID int64) (*models.ExternalProfile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.external[profileID]
	if !ok || r.m.owners[profileID] != userID {
		return nil, common.ErrorNotFound
	}
	c := *p
	c.Fields = p.Fields.Clone()
	return &c, nil
}

func (r *fakeExternalProfiles) GetByIDForUpdate(ctx context.Context, userID, profileID int64) (*models.ExternalProfile, error) {
	return r.GetByID(ctx, userID, profileID)
}

func (r *fakeExternalProfiles) Update(_ context.Context, userID int64, p *models.ExternalProfile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("ExternalProfiles.Update"); err != nil {
		return err
	}
	stored, ok := r.m.external[p.ID]
	if !ok || r.m.owners[p.ID] != userID {
		return common.ErrorNotFound
	}
	stored.IsPublic = p.IsPublic
	stored.Fields = p.Fields.Clone()
	return nil
}

func (r *fakeExternalProfiles) Delete(_ context.Context, userID, profileID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.external[profileID]; !ok || r.m.owners[profileID] != userID {
		return common.ErrorNotFound
	}
	delete(r.m.external, profileID)
	delete(r.m.owners, profileID)
	return nil
}

func (r *fakeExternalProfiles) ListForUser(_ context.Context, userID int64) ([]models.ProfileRow, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("ExternalProfiles.ListForUser"); err != nil {
		return nil, err
	}
	base, ok := r.m.base[userID]
	if !ok {
		return nil, nil
	}
	var rows []models.ProfileRow
	for pid, p := range r.m.external {
		if r.m.owners[pid] != userID {
			continue
		}
		rows = append(rows, models.ProfileRow{
			ProfileID:       p.ID,
			IntegrationID:   p.ExternalIntegrationID,
			IntegrationName: r.m.ints[p.ExternalIntegrationID].Name,
			IsPublic:        p.IsPublic,
			Fields:          p.Fields.Clone(),
			BaseFields:      base.Fields.Clone(),
		})
	}
	return rows, nil
}

type fakeIntegrations struct{ m *fakeRepoManager }

func (r *fakeIntegrations) NextID(context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Integrations.NextID"); err != nil {
		return 0, err
	}
	return r.m.nextID(), nil
}

func (r *fakeIntegrations) Create(_ context.Context, in *models.ExternalIntegration) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Integrations.Create"); err != nil {
		return err
	}
	c := *in
	c.Template = in.Template.WithoutValues()
	r.m.ints[c.ID] = &c
	return nil
}

func (r *fakeIntegrations) GetByID(_ context.Context, id int64) (*models.ExternalIntegration, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Integrations.GetByID"); err != nil {
		return nil, err
	}
	in, ok := r.m.ints[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *in
	c.Template = in.Template.Clone()
	return &c, nil
}

func (r *fakeIntegrations) GetByIDForUpdate(ctx context.Context, id int64) (*models.ExternalIntegration, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeIntegrations) Update(_ context.Context, in *models.ExternalIntegration) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.ints[in.ID]
	if !ok {
		return common.ErrorNotFound
	}
	stored.Name = in.Name
	stored.Template = in.Template.WithoutValues()
	if in.Logo != nil {
		stored.Logo = in.Logo
	}
	return nil
}

func (r *fakeIntegrations) SetTokenHash(_ context.Context, id int64, hash []byte) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.ints[id]
	if !ok {
		return common.ErrorNotFound
	}
	stored.TokenHash = hash
	return nil
}

func (r *fakeIntegrations) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.ints[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.ints, id)
	for pid, p := range r.m.external {
		if p.ExternalIntegrationID == id {
			delete(r.m.external, pid)
			delete(r.m.owners, pid)
		}
	}
	return nil
}

func (r *fakeIntegrations) ListOverview(_ context.Context, userID int64) ([]models.IntegrationOverview, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.IntegrationOverview
	for id := int64(1); id <= r.m.lastID; id++ {
		in, ok := r.m.ints[id]
		if !ok {
			continue
		}
		o := models.IntegrationOverview{ID: in.ID, Name: in.Name, HasLogo: len(in.Logo) > 0}
		for pid, p := range r.m.external {
			if p.ExternalIntegrationID == id && r.m.owners[pid] == userID {
				pid := pid
				o.ExternalProfileID = &pid
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeIntegrations) GetLogo(_ context.Context, id int64) ([]byte, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	in, ok := r.m.ints[id]
	if !ok || len(in.Logo) == 0 {
		return nil, common.ErrorNotFound
	}
	return in.Logo, nil
}

type fakeFiles struct{ m *fakeRepoManager }

func (r *fakeFiles) Create(_ context.Context, f *models.File) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Files.Create"); err != nil {
		return 0, err
	}
	c := *f
	c.ID = r.m.nextID()
	r.m.fileRows[c.ID] = &c
	return c.ID, nil
}

func (r *fakeFiles) GetByID(_ context.Context, id int64) (*models.File, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.fileRows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *f
	return &c, nil
}

func (r *fakeFiles) Names(_ context.Context, ids []int64) (map[int64]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[int64]string{}
	for _, id := range ids {
		if f, ok := r.m.fileRows[id]; ok {
			out[id] = f.FileName
		}
	}
	return out, nil
}

// failingStore is a blobs.Store whose every call fails.
type failingStore struct{ err error }

func (s failingStore) Put(context.Context, string, []byte) error   { return s.err }
func (s failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.err }

var nopLogger = logging.Nop()
