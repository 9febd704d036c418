package domain

// Settings are the gateway settings of one sales channel.
type Settings struct {
	LiveAPIKey string `json:"live_api_key"`
	TestAPIKey string `json:"test_api_key"`
	LiveShopID string `json:"live_shop_id"`
	TestShopID string `json:"test_shop_id"`
	TestMode   bool   `json:"test_mode"`
	DebugMode  bool   `json:"debug_mode"`
}

// ActiveAPIKey returns the key for the configured mode.
func (s Settings) ActiveAPIKey() string {
	if s.TestMode {
		return s.TestAPIKey
	}
	return s.LiveAPIKey
}

// ActiveShopID returns the shop id for the configured mode.
func (s Settings) ActiveShopID() string {
	if s.TestMode {
		return s.TestShopID
	}
	return s.LiveShopID
}

// Redacted returns a copy safe for API responses and logs.
func (s Settings) Redacted() Settings {
	s.LiveAPIKey = mask(s.LiveAPIKey)
	s.TestAPIKey = mask(s.TestAPIKey)
	return s
}

func mask(key string) string {
	if len(key) <= 4 {
		if key == "" {
			return ""
		}
		return "****"
	}
	return "****" + key[len(key)-4:]
}
