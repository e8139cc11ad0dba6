package shortapi

import "encoding/json"

// ExtractResultURLs flattens the provider's result payload into a list of
// media URLs. Jobs come back in several shapes depending on the model:
//
//	{"images": [{"url": ...}, ...]}
//	["https://...", ...] or [{"url": ...}, ...]
//	{"url": ...}
//	{"video": ...}
//	{"videos": [{"url": ...}, ...]}
func ExtractResultURLs(result json.RawMessage) []string {
	if len(result) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(result, &value); err != nil {
		return nil
	}

	switch v := value.(type) {
	case map[string]any:
		if images, ok := v["images"].([]any); ok {
			return urlsFromList(images)
		}
		if u, ok := v["url"].(string); ok && u != "" {
			return []string{u}
		}
		if u, ok := v["video"].(string); ok && u != "" {
			return []string{u}
		}
		if videos, ok := v["videos"].([]any); ok {
			if urls := urlsFromList(videos); len(urls) > 0 {
				return urls[:1]
			}
		}
	case []any:
		return urlsFromList(v)
	}

	return nil
}

func urlsFromList(items []any) []string {
	var urls []string
	for _, item := range items {
		switch entry := item.(type) {
		case string:
			if entry != "" {
				urls = append(urls, entry)
			}
		case map[string]any:
			if u, ok := entry["url"].(string); ok && u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls
}
