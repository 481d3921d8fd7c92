package config

type Storage struct {
	s Settings
}

var _ StorageConfig = Storage{}

// GetDatabaseURL is empty when the in-memory repositories should be used.
func (s Storage) GetDatabaseURL() string {
	return s.s.DatabaseURL
}

// GetRedisURL is empty when the in-process cache should be used.
func (s Storage) GetRedisURL() string {
	return s.s.RedisURL
}

func (s Storage) GetCachePrefix() string {
	return s.s.CachePrefix
}

type Keys struct {
	s Settings
}

var _ KeyConfig = Keys{}

func (k Keys) GetKeyEncryptionSecret() []byte {
	return []byte(k.s.KeyEncryptionSecret)
}

func (k Keys) GetRefreshTokenSecret() []byte {
	return []byte(k.s.RefreshTokenSecret)
}

func (k Keys) GetKeySize() int {
	if k.s.KeySize < 2048 {
		return 2048
	}
	return k.s.KeySize
}
