package identity

import (
	"context"
	"sync"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
)

// Provider 目前身份的存取介面
// 匿名時回傳 nil，不是錯誤
type Provider interface {
	Current(ctx context.Context) (*model.User, error)
}

// Notifier 登入/登出狀態變化的訂閱介面
// callback 帶入新的身份，登出時為 nil
type Notifier interface {
	OnIdentityChange(cb func(user *model.User)) (unsubscribe func())
}

// Manager 行程內的身份狀態
// 由外層的認證流程呼叫 SignIn / SignOut，購物車引擎只訂閱不驅動
type Manager struct {
	mu   sync.RWMutex
	user *model.User

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(user *model.User)
}

func NewManager() *Manager {
	return &Manager{subs: make(map[int]func(user *model.User))}
}

func (m *Manager) Current(ctx context.Context) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil, nil
	}
	u := *m.user
	return &u, nil
}

// SignIn 設定目前身份並通知訂閱者
func (m *Manager) SignIn(user model.User) {
	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	m.notify(&user)
}

// SignOut 清除身份並通知訂閱者
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
	m.notify(nil)
}

func (m *Manager) OnIdentityChange(cb func(user *model.User)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = cb
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

// 通知同步呼叫
// callback 內再做的購物車操作自己會進引擎的序列化佇列，這裡不用另外排
func (m *Manager) notify(user *model.User) {
	m.subMu.Lock()
	cbs := make([]func(*model.User), 0, len(m.subs))
	for _, cb := range m.subs {
		cbs = append(cbs, cb)
	}
	m.subMu.Unlock()

	for _, cb := range cbs {
		var u *model.User
		if user != nil {
			clone := *user
			u = &clone
		}
		cb(u)
	}
}

var (
	_ Provider = (*Manager)(nil)
	_ Notifier = (*Manager)(nil)
)
