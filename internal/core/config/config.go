package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type Log struct {
	Level string
	JSON  bool
}

// JWT carries both token classes. Access and refresh secrets must differ so
// that holding one token never allows forging the other.
type JWT struct {
	AccessSecret    string
	RefreshSecret   string
	Issuer          string
	AccessTTLMin    int
	RefreshTTLHours int
}

type Auth struct {
	BcryptCost int
}

// RateLimit is the per-origin budget on the register/login endpoints.
// Backend "redis" shares counters across instances; "memory" is per-process.
type RateLimit struct {
	WindowMin int
	Budget    int
	Backend   string
}

type Captcha struct {
	Secret     string
	VerifyURL  string
	TimeoutSec int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	Auth      Auth
	RateLimit RateLimit `mapstructure:"ratelimit"`
	Captcha   Captcha
	DB        DB
	Redis     Redis `mapstructure:"redis"`
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("jwt.accessttlmin", 60)
	v.SetDefault("jwt.refreshttlhours", 168) // 7d
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("ratelimit.windowmin", 5)
	v.SetDefault("ratelimit.budget", 30)
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("captcha.verifyurl", "https://www.google.com/recaptcha/api/siteverify")
	v.SetDefault("captcha.timeoutsec", 5)
}

func (j JWT) AccessTTL() time.Duration  { return time.Duration(j.AccessTTLMin) * time.Minute }
func (j JWT) RefreshTTL() time.Duration { return time.Duration(j.RefreshTTLHours) * time.Hour }

func (r RateLimit) Window() time.Duration { return time.Duration(r.WindowMin) * time.Minute }
