package realtime

// Feed 合并历史与实时事件，同一记录的插入只放行一次
type Feed struct {
	inserted map[uint64]struct{}
	deleted  map[uint64]struct{}
}

// NewFeed known 为已经下发给客户端的记录 id
func NewFeed(known ...uint64) *Feed {
	f := &Feed{
		inserted: make(map[uint64]struct{}, len(known)),
		deleted:  make(map[uint64]struct{}),
	}
	for _, id := range known {
		f.inserted[id] = struct{}{}
	}
	return f
}

// Admit 返回该事件是否应下发
func (f *Feed) Admit(ev Event) bool {
	switch ev.Kind {
	case KindInsert:
		if _, ok := f.inserted[ev.ID]; ok {
			return false
		}
		if _, ok := f.deleted[ev.ID]; ok {
			return false
		}
		f.inserted[ev.ID] = struct{}{}
	case KindDelete:
		if _, ok := f.deleted[ev.ID]; ok {
			return false
		}
		f.deleted[ev.ID] = struct{}{}
	}
	return true
}
