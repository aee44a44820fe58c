package service

import "Uni_Connect/internal/model"

// uniqueIDs 去重并去掉 0，保持原顺序
func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// missingIDs want 中不在 have 里的 id
func missingIDs(want, have []uint64) []uint64 {
	set := make(map[uint64]struct{}, len(have))
	for _, id := range have {
		set[id] = struct{}{}
	}
	var out []uint64
	for _, id := range want {
		if _, ok := set[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func exclude(ids []uint64, id uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func memberUserIDs(ms []model.GroupMember) []uint64 {
	ids := make([]uint64, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	return ids
}
