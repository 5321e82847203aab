package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/interestconnect/realtime/internal/domain"
)

// lookupUsers collapses concurrent directory lookups for the same id set.
// The returned map is shared between callers and must not be modified.
func (s *realtimeService) lookupUsers(ctx context.Context, ids []string) (map[string]domain.UserSummary, error) {
	result, err, _ := s.sf.Do(lookupKey(ids), func() (interface{}, error) {
		return s.users.LookupUsers(ctx, ids)
	})
	if err != nil {
		return nil, err
	}

	users, ok := result.(map[string]domain.UserSummary)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return users, nil
}

func lookupKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
