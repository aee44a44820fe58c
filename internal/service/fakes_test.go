package service

import (
	"context"
	"errors"
	"sync"
)

var errFakeMissing = errors.New("missing")

type fakeCodes struct {
	mu        sync.Mutex
	pending   map[string]string
	confirmed map[string]string
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{pending: map[string]string{}, confirmed: map[string]string{}}
}

func codeKey(scope, email string) string { return scope + ":" + email }

func (f *fakeCodes) SavePending(_ context.Context, scope, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[codeKey(scope, email)] = code
	return nil
}

func (f *fakeCodes) Confirm(_ context.Context, scope, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := codeKey(scope, email)
	code, ok := f.pending[k]
	if !ok {
		return errFakeMissing
	}
	delete(f.pending, k)
	f.confirmed[k] = code
	return nil
}

func (f *fakeCodes) DeletePending(_ context.Context, scope, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, codeKey(scope, email))
	return nil
}

func (f *fakeCodes) GetConfirmed(_ context.Context, scope, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.confirmed[codeKey(scope, email)]
	if !ok {
		return "", errFakeMissing
	}
	return code, nil
}

func (f *fakeCodes) DeleteConfirmed(_ context.Context, scope, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.confirmed, codeKey(scope, email))
	return nil
}

func (f *fakeCodes) code(scope, email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmed[codeKey(scope, email)]
}

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) Send(to, subject, htmlBody string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[uint64]string
}

func newFakeTokens() *fakeTokens { return &fakeTokens{tokens: map[uint64]string{}} }

func (f *fakeTokens) AddUserToken(_ context.Context, userID uint64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[userID] = token
	return nil
}

func (f *fakeTokens) GetUserToken(_ context.Context, userID uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[userID]
	if !ok {
		return "", errFakeMissing
	}
	return t, nil
}

func (f *fakeTokens) ExtendUserToken(_ context.Context, userID uint64) error {
	_, err := f.GetUserToken(context.Background(), userID)
	return err
}

func (f *fakeTokens) DeleteUserToken(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, userID)
	return nil
}

// fakeLikeCache 只实现计数与集合，够验证缓存读写路径
type fakeLikeCache struct {
	mu      sync.Mutex
	counts  map[uint64]int64
	liked   map[[2]uint64]bool
	fills   int
	deleted []uint64
}

func newFakeLikeCache() *fakeLikeCache {
	return &fakeLikeCache{counts: map[uint64]int64{}, liked: map[[2]uint64]bool{}}
}

func (c *fakeLikeCache) AddLike(_ context.Context, userID, postID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liked[[2]uint64{userID, postID}] = true
	if _, ok := c.counts[postID]; ok {
		c.counts[postID]++
	}
	return nil
}

func (c *fakeLikeCache) RemoveLike(_ context.Context, userID, postID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liked[[2]uint64{userID, postID}] = false
	if v, ok := c.counts[postID]; ok && v > 0 {
		c.counts[postID]--
	}
	return nil
}

func (c *fakeLikeCache) IsLikedCached(_ context.Context, userID, postID uint64) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.liked[[2]uint64{userID, postID}]
	return v, ok, nil
}

func (c *fakeLikeCache) GetLikeCountCached(_ context.Context, postID uint64) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.counts[postID]
	return v, ok, nil
}

func (c *fakeLikeCache) SetLikeCount(_ context.Context, postID uint64, cnt int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[postID] = cnt
	c.fills++
	return nil
}

func (c *fakeLikeCache) WarmIsLiked(_ context.Context, userID, postID uint64, liked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liked[[2]uint64{userID, postID}] = liked
}

func (c *fakeLikeCache) DeleteCount(_ context.Context, postID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, postID)
	c.deleted = append(c.deleted, postID)
	return nil
}

func (c *fakeLikeCache) AcquireFill(context.Context, uint64, string) (bool, error) { return true, nil }

func (c *fakeLikeCache) ReleaseFill(context.Context, uint64, string) error { return nil }
