package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/pinatree/pinatreebackend/models"
	"gorm.io/gorm"
)

// in-memory repository fakes shared by the handler tests

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uint]*models.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User), nextID: 1}
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return errors.New("UNIQUE constraint failed: users.email")
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type fakeTreeRepo struct {
	mu     sync.Mutex
	trees  map[uint]*models.Tree
	nextID uint
}

func newFakeTreeRepo() *fakeTreeRepo {
	return &fakeTreeRepo{trees: make(map[uint]*models.Tree), nextID: 1}
}

func (r *fakeTreeRepo) Create(tree *models.Tree) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tree.ID = r.nextID
	r.nextID++
	copied := *tree
	r.trees[tree.ID] = &copied
	return nil
}

func (r *fakeTreeRepo) GetByID(id uint) (*models.Tree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trees[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTreeRepo) ListByUser(userID uint) ([]models.Tree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tree
	for _, t := range r.trees {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTreeRepo) Update(tree *models.Tree) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trees[tree.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *tree
	r.trees[tree.ID] = &copied
	return nil
}

func (r *fakeTreeRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trees[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.trees, id)
	return nil
}

func (r *fakeTreeRepo) CountReferencingImage(imageURL string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.trees {
		if t.ImageURL == imageURL {
			n++
		}
	}
	return n, nil
}

type fakeUploadRepo struct {
	mu      sync.Mutex
	uploads map[string]*models.Upload

	createErr error
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{uploads: make(map[string]*models.Upload)}
}

func (r *fakeUploadRepo) Create(upload *models.Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	copied := *upload
	r.uploads[upload.ID] = &copied
	return nil
}

func (r *fakeUploadRepo) GetByID(id string) (*models.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.uploads[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUploadRepo) GetByOriginalPath(originalPath string) (*models.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.uploads {
		if u.OriginalPath == originalPath {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUploadRepo) ListByUser(userID uint) ([]models.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Upload
	for _, u := range r.uploads {
		if u.UserID == userID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUploadRepo) MarkPreviewProcessing(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *fakeUploadRepo) SetPreviewResult(id string, previewPath *string, taskErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if taskErr != nil {
		msg := taskErr.Error()
		u.PreviewStatus = models.PreviewStatusError
		u.PreviewError = &msg
		return nil
	}
	u.PreviewStatus = models.PreviewStatusDone
	u.PreviewPath = previewPath
	return nil
}

func (r *fakeUploadRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.uploads, id)
	return nil
}

// withUser injects an authenticated user the way AuthMiddleware would.
func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
}

// withURLParam attaches a chi route parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
