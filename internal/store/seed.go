package store

import (
	"context"
	"fmt"
)

// SeedShops are the documents a fresh store starts with.
var SeedShops = []string{
	"착한식당 '맛있는 한끼'는 중곡동에 위치한 한식당으로, 지역 농산물을 활용한 건강한 식단을 합리적인 가격에 제공합니다. 특히 어르신들에게 10% 할인 혜택을 제공합니다.",
	"광진구 구의동의 '친환경 마트'는 지역 생산 제품과 친환경 제품을 판매하며, 매달 수익의 5%를 지역 취약계층에 기부하고 있습니다.",
	"화양동 '따뜻한 빵집'은 매일 신선한 빵을 구워 판매하며, 폐업시간에 남은 빵을 지역 아동센터에 기부하는 활동을 하고 있습니다.",
	"건대입구역 근처의 '착한 문구점'은 학생들에게 10% 할인을 제공하며, 학기 초에는 저소득층 학생들에게 무료로 학용품을 지원합니다.",
	"자양동의 '마을 세탁소'는 독거노인과 장애인 가정의 세탁물을 무료로 수거하여 세탁 서비스를 제공하는 착한가게입니다.",
}

// EnsureSeeded fills an empty store with SeedShops, tagging each with
// source=shop_<i>. A store that already holds documents is left untouched.
func EnsureSeeded(ctx context.Context, s *Store) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.backend.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	for i, text := range SeedShops {
		meta := map[string]string{"source": fmt.Sprintf("shop_%d", i)}
		if _, err := s.insert(ctx, text, meta, seedID); err != nil {
			return i, fmt.Errorf("seed shop_%d: %w", i, err)
		}
	}
	return len(SeedShops), nil
}
