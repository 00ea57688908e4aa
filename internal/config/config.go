package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string            `yaml:"env" env:"ENV" env-default:"local"`
	DSN         string            `yaml:"dsn" env:"DSN" env-required:"true"`
	HTTP        HTTPConfig        `yaml:"http"`
	FileStorage FileStorageConfig `yaml:"file_storage"`
	Redis       RedisConf         `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	Compression CompressionConfig `yaml:"compression"`
	Tickets     TicketsConfig     `yaml:"tickets"`
	ArtLookup   ArtLookupConfig   `yaml:"art_lookup"`
	Carousel    CarouselConfig    `yaml:"carousel"`
}

// HTTPConfig.LoginURL is where unauthenticated browser requests are sent.
type HTTPConfig struct {
	Host        string        `yaml:"host"`
	Port        string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"30s"`
	CORSOrigins []string      `yaml:"cors_origins"`
	LoginURL    string        `yaml:"login_url" env-default:"/login"`
}

type FileStorageConfig struct {
	BaseDir string `yaml:"base_dir" env-default:"./uploads"`
	BaseURL string `yaml:"base_url" env-default:"http://localhost:8080/uploads"`
	MaxSize int64  `yaml:"max_size" env-default:"20971520"`
}

type RedisConf struct {
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string        `yaml:"redispassword" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"`
	DialTimeout   time.Duration `yaml:"dial_timeout" env-default:"3s"`
	ReadTimeout   time.Duration `yaml:"read_timeout" env-default:"2s"`
	WriteTimeout  time.Duration `yaml:"write_timeout" env-default:"2s"`
}

type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
	SessionSecret      string        `yaml:"session_secret" env:"SESSION_SECRET" env-required:"true"`
	GoogleClientID     string        `yaml:"google_client_id" env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string        `yaml:"google_redirect_url" env:"GOOGLE_REDIRECT_URL"`
	FrontendRedirect   string        `yaml:"frontend_redirect" env:"GOOGLE_FRONTEND_REDIRECT"`
}

type CompressionConfig struct {
	MaxSizeMB    float64 `yaml:"max_size_mb" env-default:"2"`
	ThresholdMB  float64 `yaml:"threshold_mb" env-default:"1"`
	StartQuality int     `yaml:"start_quality" env-default:"90"`
	MinQuality   int     `yaml:"min_quality" env-default:"50"`
	QualityStep  int     `yaml:"quality_step" env-default:"10"`
}

type TicketsConfig struct {
	ListCacheTTL     time.Duration `yaml:"list_cache_ttl" env-default:"5m"`
	RecoveryInterval time.Duration `yaml:"recovery_interval" env-default:"10m"`
	RecoveryGrace    time.Duration `yaml:"recovery_grace" env-default:"30m"`
}

type ArtLookupConfig struct {
	BaseURL      string        `yaml:"base_url" env-default:"https://api.artic.edu/api/v1"`
	ImageBaseURL string        `yaml:"image_base_url" env-default:"https://www.artic.edu/iiif/2"`
	Timeout      time.Duration `yaml:"timeout" env-default:"5s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"1m"`
	MaxPage      int           `yaml:"max_page" env-default:"50"`
	MaxAttempts  int           `yaml:"max_attempts" env-default:"3"`
	FallbackIDs  []int         `yaml:"fallback_ids" env-default:"27992,20684,16568"`
}

type CarouselConfig struct {
	TicketSettle   time.Duration `yaml:"ticket_settle" env-default:"150ms"`
	ImageSettle    time.Duration `yaml:"image_settle" env-default:"300ms"`
	SwipeThreshold float64       `yaml:"swipe_threshold" env-default:"0.15"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	// .env is optional, values from it only fill env overrides
	_ = godotenv.Load()

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
