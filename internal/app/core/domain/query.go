package domain

const (
	DefaultOffset = 0
	DefaultLimit  = 10
	MaxLimit      = 1000
)

// Pagination offset / limit 分頁
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Normalize 補上預設值 (limit 為 0 時使用 DefaultLimit)，limit 上限為 MaxLimit
func (p Pagination) Normalize() (Pagination, error) {
	if p.Offset < 0 || p.Limit < 0 {
		return Pagination{}, ErrInvalidPagination
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p, nil
}

// DateRange 包含兩端的時間區間 [Start, End]，單位 epoch millis
type DateRange struct {
	Start int64 `json:"dateStart"`
	End   int64 `json:"dateEnd"`
}

// Normalize End 為 0 時使用 now
func (r DateRange) Normalize(now int64) (DateRange, error) {
	if r.End == 0 {
		r.End = now
	}
	if r.Start < 0 || r.Start > r.End {
		return DateRange{}, ErrInvalidDateRange
	}
	return r, nil
}

func (r DateRange) Contains(ts int64) bool {
	return ts >= r.Start && ts <= r.End
}

// Window 依分頁切出結果
func Window[T any](items []T, p Pagination) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}
