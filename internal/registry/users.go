package registry

import (
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/google/uuid"
)

// CreateUser выделяет новую идентичность. Уникальность имени здесь не
// проверяется — это забота вызывающего (ValidateName перед созданием).
func (r *Registry) CreateUser(name string, isGuest bool) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createUserLocked(name, isGuest)
}

func (r *Registry) createUserLocked(name string, isGuest bool) *domain.User {
	now := time.Now()
	u := &domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		IsGuest:   isGuest,
		Status:    domain.StatusOnline,
		CreatedAt: now,
		LastSeen:  now,
	}
	r.users[u.ID] = u
	return u
}

func (r *Registry) GetUser(id string) (*domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// UpdateStatus выставляет статус и обновляет last seen. Неизвестный id — no-op.
func (r *Registry) UpdateStatus(id string, status domain.UserStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return
	}
	u.Status = status
	u.LastSeen = time.Now()
}

// ValidateName — формат имени плюс уникальность среди активных пользователей
// (регистронезависимо).
func (r *Registry) ValidateName(name string) error {
	if err := domain.ValidateDisplayName(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.validateNameLocked(name)
}

func (r *Registry) validateNameLocked(name string) error {
	for _, u := range r.users {
		if u.Status == domain.StatusOffline {
			continue
		}
		if strings.EqualFold(u.Name, name) {
			return domain.ErrNameTaken
		}
	}
	return nil
}
