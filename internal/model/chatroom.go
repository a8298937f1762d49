package model

import (
	"sort"
	"sync"

	"github.com/paul/notecache/internal/store/memory"
)

// Chatroom is one private conversation of a ChatroomList
type Chatroom struct {
	mu       sync.Mutex
	messages map[string]int64
}

func (r *Chatroom) AddMessage(key string, createdAt int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.messages == nil {
		r.messages = make(map[string]int64)
	}
	if _, ok := r.messages[key]; ok {
		return false
	}
	r.messages[key] = createdAt
	return true
}

func (r *Chatroom) RemoveMessage(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.messages[key]; !ok {
		return false
	}
	delete(r.messages, key)
	return true
}

// Messages returns the message keys, newest first
func (r *Chatroom) Messages() []string {
	r.mu.Lock()
	keys := mapKeys(r.messages)
	times := make(map[string]int64, len(keys))
	for _, k := range keys {
		times[k] = r.messages[k]
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if times[keys[i]] == times[keys[j]] {
			return keys[i] > keys[j]
		}
		return times[keys[i]] > times[keys[j]]
	})
	return keys
}

func (r *Chatroom) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// AllButLatest returns every message except the newest one and those keep
// reports true for.
func (r *Chatroom) AllButLatest(keep func(key string) bool) []string {
	msgs := r.Messages()
	if len(msgs) <= 1 {
		return nil
	}
	var out []string
	for _, k := range msgs[1:] {
		if keep == nil || !keep(k) {
			out = append(out, k)
		}
	}
	return out
}

// ChatroomList holds the private conversations of one user
type ChatroomList struct {
	owner string
	rooms *memory.Map[ChatroomKey, *Chatroom]
}

func NewChatroomList(owner string) *ChatroomList {
	return &ChatroomList{owner: owner, rooms: memory.NewMap[ChatroomKey, *Chatroom]()}
}

func (l *ChatroomList) Owner() string { return l.owner }

// Add files the message under the conversation with members
func (l *ChatroomList) Add(members []string, key string, createdAt int64) (GathererKey, bool) {
	roomKey := NewChatroomKey(l.owner, members)
	room := l.rooms.GetOrCreate(roomKey, func() *Chatroom { return &Chatroom{} })
	return GathererKey{Kind: GatherChatroom, ID: l.owner, Scope: string(roomKey)}, room.AddMessage(key, createdAt)
}

func (l *ChatroomList) Room(key ChatroomKey) (*Chatroom, bool) {
	return l.rooms.Get(key)
}

// Rooms visits every conversation until visit returns false
func (l *ChatroomList) Rooms(visit func(ChatroomKey, *Chatroom) bool) {
	l.rooms.ForEach(visit)
}

func (l *ChatroomList) Size() int {
	return l.rooms.Size()
}
