package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/dbx"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	attachmentsrepo "github.com/dmitrijs2005/taskpilot/internal/server/repositories/attachments"
	challengesrepo "github.com/dmitrijs2005/taskpilot/internal/server/repositories/challenges"
	projectsrepo "github.com/dmitrijs2005/taskpilot/internal/server/repositories/projects"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/repomanager"
	tagsrepo "github.com/dmitrijs2005/taskpilot/internal/server/repositories/tags"
	tasksrepo "github.com/dmitrijs2005/taskpilot/internal/server/repositories/tasks"
	teamsrepo "github.com/dmitrijs2005/taskpilot/internal/server/repositories/teams"
	usersrepo "github.com/dmitrijs2005/taskpilot/internal/server/repositories/users"
)

// In-memory fakes for the repository layer. Stateful where tests need to
// observe writes, map-backed where they need lookups.

type notification struct {
	recipient string
	subject   string
	body      string
}

type fakeNotifier struct {
	sent []notification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, notification{recipient, subject, body})
	return nil
}

type fakeUsersRepo struct {
	byEmail   map[string]*models.User
	byID      map[string]*models.User
	createErr error

	created         []*models.User
	updatedHash     map[string]string
	updatePasswdErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byEmail:     map[string]*models.User{},
		byID:        map[string]*models.User{},
		updatedHash: map[string]string{},
	}
}

func (f *fakeUsersRepo) add(u *models.User) {
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, common.ErrConflict
	}
	if u.ID == "" {
		u.ID = "a0000000-0000-0000-0000-000000000001"
	}
	u.CreatedAt = time.Now()
	f.add(u)
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, email string, hash string) error {
	if f.updatePasswdErr != nil {
		return f.updatePasswdErr
	}
	if _, ok := f.byEmail[email]; !ok {
		return common.ErrNotFound
	}
	f.updatedHash[email] = hash
	return nil
}

func (f *fakeUsersRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}

func (f *fakeUsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func challengeKey(flow models.ChallengeFlow, email string) string {
	return string(flow) + "|" + email
}

type fakeChallengesRepo struct {
	items     map[string]*models.Challenge
	createErr error

	rotated []models.Challenge
	deleted []string
}

func newFakeChallengesRepo() *fakeChallengesRepo {
	return &fakeChallengesRepo{items: map[string]*models.Challenge{}}
}

func (f *fakeChallengesRepo) Create(ctx context.Context, c *models.Challenge) (*models.Challenge, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	c.ID = "challenge-new"
	c.CreatedAt = time.Now()
	f.items[challengeKey(c.Flow, c.Email)] = c
	return c, nil
}

func (f *fakeChallengesRepo) Get(ctx context.Context, flow models.ChallengeFlow, email string) (*models.Challenge, error) {
	c, ok := f.items[challengeKey(flow, email)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (f *fakeChallengesRepo) Rotate(ctx context.Context, flow models.ChallengeFlow, email string, otp string, expiresAt time.Time) error {
	c, ok := f.items[challengeKey(flow, email)]
	if !ok {
		return common.ErrNotFound
	}
	c.OTP = otp
	c.ExpiresAt = expiresAt
	f.rotated = append(f.rotated, *c)
	return nil
}

func (f *fakeChallengesRepo) Delete(ctx context.Context, flow models.ChallengeFlow, email string) error {
	key := challengeKey(flow, email)
	delete(f.items, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeChallengesRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for key, c := range f.items {
		if c.Expired(now) {
			delete(f.items, key)
			n++
		}
	}
	return n, nil
}

type fakeTeamsRepo struct {
	byID map[string]*models.Team

	updated []*models.Team
	deleted []string
}

func newFakeTeamsRepo() *fakeTeamsRepo {
	return &fakeTeamsRepo{byID: map[string]*models.Team{}}
}

func (f *fakeTeamsRepo) Create(ctx context.Context, t *models.Team) (*models.Team, error) {
	if t.ID == "" {
		t.ID = "a0000000-0000-0000-0000-000000000002"
	}
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeTeamsRepo) Update(ctx context.Context, t *models.Team) error {
	if _, ok := f.byID[t.ID]; !ok {
		return common.ErrNotFound
	}
	f.byID[t.ID] = t
	f.updated = append(f.updated, t)
	return nil
}

func (f *fakeTeamsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTeamsRepo) List(ctx context.Context) ([]*models.Team, error) {
	var result []*models.Team
	for _, t := range f.byID {
		result = append(result, t)
	}
	return result, nil
}

func (f *fakeTeamsRepo) GetByID(ctx context.Context, id string) (*models.Team, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return t, nil
}

func (f *fakeTeamsRepo) GetByName(ctx context.Context, name string) (*models.Team, error) {
	for _, t := range f.byID {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeTeamsRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}

type fakeProjectsRepo struct {
	byID map[string]*models.Project

	updated []*models.Project
	deleted []string
}

func newFakeProjectsRepo() *fakeProjectsRepo {
	return &fakeProjectsRepo{byID: map[string]*models.Project{}}
}

func (f *fakeProjectsRepo) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	if p.ID == "" {
		p.ID = "a0000000-0000-0000-0000-000000000003"
	}
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeProjectsRepo) Update(ctx context.Context, p *models.Project) error {
	if _, ok := f.byID[p.ID]; !ok {
		return common.ErrNotFound
	}
	f.byID[p.ID] = p
	f.updated = append(f.updated, p)
	return nil
}

func (f *fakeProjectsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeProjectsRepo) List(ctx context.Context) ([]*models.Project, error) {
	var result []*models.Project
	for _, p := range f.byID {
		result = append(result, p)
	}
	return result, nil
}

func (f *fakeProjectsRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (f *fakeProjectsRepo) GetByName(ctx context.Context, name string) (*models.Project, error) {
	for _, p := range f.byID {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeProjectsRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}

type fakeTagsRepo struct {
	byID map[string]*models.Tag

	deleted []string
}

func newFakeTagsRepo() *fakeTagsRepo {
	return &fakeTagsRepo{byID: map[string]*models.Tag{}}
}

func (f *fakeTagsRepo) Create(ctx context.Context, t *models.Tag) (*models.Tag, error) {
	if t.ID == "" {
		t.ID = "a0000000-0000-0000-0000-000000000004"
	}
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeTagsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTagsRepo) List(ctx context.Context) ([]*models.Tag, error) {
	var result []*models.Tag
	for _, t := range f.byID {
		result = append(result, t)
	}
	return result, nil
}

func (f *fakeTagsRepo) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	for _, t := range f.byID {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeTagsRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}

type fakeTasksRepo struct {
	byID map[string]*models.Task

	listOut []*models.Task
	listErr error

	lastFilter tasksrepo.Filter
	lastSort   string

	completedOut   []*models.Task
	uncompletedOut []*models.Task
	closedRows     []tasksrepo.ClosedTaskRow

	created          []*models.Task
	updated          []*models.Task
	deleted          []string
	deletedByProject []string
}

func newFakeTasksRepo() *fakeTasksRepo {
	return &fakeTasksRepo{byID: map[string]*models.Task{}}
}

func (f *fakeTasksRepo) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	if t.ID == "" {
		t.ID = "a0000000-0000-0000-0000-000000000005"
	}
	t.CreatedAt = time.Now()
	f.byID[t.ID] = t
	f.created = append(f.created, t)
	return t, nil
}

func (f *fakeTasksRepo) Update(ctx context.Context, t *models.Task) error {
	if _, ok := f.byID[t.ID]; !ok {
		return common.ErrNotFound
	}
	existing := f.byID[t.ID]
	t.CreatedAt = existing.CreatedAt
	f.byID[t.ID] = t
	f.updated = append(f.updated, t)
	return nil
}

func (f *fakeTasksRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTasksRepo) DeleteByProject(ctx context.Context, projectID string) error {
	f.deletedByProject = append(f.deletedByProject, projectID)
	return nil
}

func (f *fakeTasksRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return t, nil
}

func (f *fakeTasksRepo) List(ctx context.Context, filter tasksrepo.Filter, sort string) ([]*models.Task, error) {
	f.lastFilter = filter
	f.lastSort = sort
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakeTasksRepo) ListCompletedSince(ctx context.Context, since time.Time) ([]*models.Task, error) {
	return f.completedOut, nil
}

func (f *fakeTasksRepo) ListUncompleted(ctx context.Context) ([]*models.Task, error) {
	return f.uncompletedOut, nil
}

func (f *fakeTasksRepo) ClosedTaskRows(ctx context.Context) ([]tasksrepo.ClosedTaskRow, error) {
	return f.closedRows, nil
}

type fakeAttachmentsRepo struct {
	created []*models.Attachment
	listOut []*models.Attachment
}

func (f *fakeAttachmentsRepo) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {
	a.ID = "a0000000-0000-0000-0000-000000000006"
	a.CreatedAt = time.Now()
	f.created = append(f.created, a)
	return a, nil
}

func (f *fakeAttachmentsRepo) ListByTask(ctx context.Context, taskID string) ([]*models.Attachment, error) {
	return f.listOut, nil
}

type fakeRepoManager struct {
	users       *fakeUsersRepo
	challenges  *fakeChallengesRepo
	teams       *fakeTeamsRepo
	projects    *fakeProjectsRepo
	tags        *fakeTagsRepo
	tasks       *fakeTasksRepo
	attachments *fakeAttachmentsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:       newFakeUsersRepo(),
		challenges:  newFakeChallengesRepo(),
		teams:       newFakeTeamsRepo(),
		projects:    newFakeProjectsRepo(),
		tags:        newFakeTagsRepo(),
		tasks:       newFakeTasksRepo(),
		attachments: &fakeAttachmentsRepo{},
	}
}

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.users }
func (m *fakeRepoManager) Challenges(db dbx.DBTX) challengesrepo.Repository {
	return m.challenges
}
func (m *fakeRepoManager) Teams(db dbx.DBTX) teamsrepo.Repository       { return m.teams }
func (m *fakeRepoManager) Projects(db dbx.DBTX) projectsrepo.Repository { return m.projects }
func (m *fakeRepoManager) Tags(db dbx.DBTX) tagsrepo.Repository         { return m.tags }
func (m *fakeRepoManager) Tasks(db dbx.DBTX) tasksrepo.Repository       { return m.tasks }
func (m *fakeRepoManager) Attachments(db dbx.DBTX) attachmentsrepo.Repository {
	return m.attachments
}
