package config

import (
	"os"

	viper "github.com/spf13/viper"
)

type Config struct {
	DbName        string `mapstructure:"POSTGRES_DB"`
	DbHost        string `mapstructure:"POSTGRES_HOST"`
	DbPort        string `mapstructure:"POSTGRES_PORT"`
	DbUser        string `mapstructure:"POSTGRES_USER"`
	DbPas         string `mapstructure:"POSTGRES_PASSWORD"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic    string `mapstructure:"KAFKA_CART_TOPIC"`
	PaymentURL    string `mapstructure:"PAYMENT_BASE_URL"`
	GuestCartDir  string `mapstructure:"GUEST_CART_DIR"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
}

/*
組裝層讀一次設定後用值傳遞，不做全域 singleton
.env 可以沒有（只吃環境變數），壞掉不行
單純回傳錯誤由外部決定要不要 Fatal
*/
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("POSTGRES_DB", "storefront")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CART_TOPIC", "storefront.cart.events")
	v.SetDefault("PAYMENT_BASE_URL", "http://localhost:4242")
	v.SetDefault("GUEST_CART_DIR", ".storefront")
	v.SetDefault("LOG_LEVEL", "info")

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cf := &Config{}
	if err := v.Unmarshal(cf); err != nil {
		return nil, err
	}
	return cf, nil
}
