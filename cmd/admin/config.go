package main

// Config is read with Netflix/go-env; only the stores are needed here.
type Config struct {
	DBDriver      string `env:"ROOMCHAT_DB_DRIVER,default=postgres"`
	DatabaseDSN   string `env:"ROOMCHAT_DATABASE_DSN,default=host=localhost user=user password=password dbname=roomchatdb port=5432 sslmode=disable"`
	RedisAddr     string `env:"ROOMCHAT_REDIS_ADDR,default=localhost:6379"`
	RedisPassword string `env:"ROOMCHAT_REDIS_PASSWORD"`
	RedisDB       int    `env:"ROOMCHAT_REDIS_DB,default=0"`
}
