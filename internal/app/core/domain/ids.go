package domain

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// SortIDs 去除重複並依位元組遞增排序
// 標準小寫字串表示的排序與位元組排序一致，MySQL / PostgreSQL 以字串欄位鎖定時順序相同
func SortIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
