package generator

import (
	"log/slog"
	"math"
)

// seedToPtrInt32 は設定の *int64 を SDK 用の *int32 に変換するのだ。
// int32 に収まらない値は切り捨てずに nil を返し、シード指定なしで続行するのだ。
func seedToPtrInt32(s *int64) *int32 {
	if s == nil {
		return nil
	}
	if *s > math.MaxInt32 || *s < math.MinInt32 {
		slog.Warn("シード値が int32 の範囲外のため無視します", "seed", *s)
		return nil
	}
	v := int32(*s)
	return &v
}
