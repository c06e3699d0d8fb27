package interest

// SelectDiverse picks up to maxItems from a score-descending list while
// preferring topic variety. Pass one admits an item only while its primary
// topic (first matched topic) has fewer than maxPerTopic admissions. If that
// leaves the quota unfilled, pass two admits remaining items by score with no
// per-topic cap: diversity is a preference, the quota is not.
func SelectDiverse(scored []ScoredItem, maxItems, maxPerTopic int) []ScoredItem {
	if maxItems <= 0 {
		return nil
	}

	selected := make([]ScoredItem, 0, maxItems)
	taken := make([]bool, len(scored))
	perTopic := make(map[string]int)

	for i, item := range scored {
		if len(selected) >= maxItems {
			break
		}
		if len(item.MatchedTopics) == 0 {
			continue
		}
		primary := item.MatchedTopics[0]
		if maxPerTopic > 0 && perTopic[primary] >= maxPerTopic {
			continue
		}
		perTopic[primary]++
		taken[i] = true
		selected = append(selected, item)
	}

	for i, item := range scored {
		if len(selected) >= maxItems {
			break
		}
		if taken[i] || len(item.MatchedTopics) == 0 {
			continue
		}
		taken[i] = true
		selected = append(selected, item)
	}

	return selected
}
