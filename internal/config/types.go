package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
	Map            MapConfig             `yaml:"map"`
	Limits         LimitsConfig          `yaml:"limits"`
	Mail           MailConfig            `yaml:"mail"`
	AdminEmail     string                `yaml:"admin_email"`
	Admin          AdminSeedConfig       `yaml:"admin"`
}

// AdminSeedConfig bootstraps the first admin account on an empty database.
type AdminSeedConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

// MapConfig bounds accepted coordinates to the served region.
type MapConfig struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLng float64 `yaml:"min_lng"`
	MaxLng float64 `yaml:"max_lng"`
	// DuplicateRadiusM is the radius used for the nearby-duplicate check
	// on issue-report submissions.
	DuplicateRadiusM float64 `yaml:"duplicate_radius_m"`
}

// LimitsConfig caps per-user daily submissions.
type LimitsConfig struct {
	DailyPlaces  int `yaml:"daily_places"`
	DailyReports int `yaml:"daily_reports"`
	MaxImages    int `yaml:"max_images"`
	// MaxImagesPromo applies while a point is sponsored.
	MaxImagesPromo int `yaml:"max_images_promo"`
}

type MailConfig struct {
	Enable    bool   `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	UseResend bool   `yaml:"use_resend"`
	ResendKey string `yaml:"resend_key"`
}

type rawAppConfig struct {
	Port               int               `yaml:"port"`
	DSN                string            `yaml:"dsn"`
	DatabaseURL        string            `yaml:"database_url"`
	RedisURL           string            `yaml:"redis_url"`
	Database           rawDatabaseConfig `yaml:"database"`
	Redis              rawRedisConfig    `yaml:"redis"`
	Env                string            `yaml:"env"`
	AllowedOrigins     []string          `yaml:"allowed_origins"`
	CORSAllowedOrigins []string          `yaml:"cors_allowed_origins"`
	JWTSecret          string            `yaml:"jwt_secret"`
	Timezone           string            `yaml:"timezone"`
	TZ                 string            `yaml:"tz"`
	Map                rawMapConfig      `yaml:"map"`
	Limits             rawLimitsConfig   `yaml:"limits"`
	Mail               MailConfig        `yaml:"mail"`
	AdminEmail         string            `yaml:"admin_email"`
	Admin              AdminSeedConfig   `yaml:"admin"`
}

type rawDatabaseConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawMapConfig struct {
	MinLat           *float64 `yaml:"min_lat"`
	MaxLat           *float64 `yaml:"max_lat"`
	MinLng           *float64 `yaml:"min_lng"`
	MaxLng           *float64 `yaml:"max_lng"`
	DuplicateRadiusM *float64 `yaml:"duplicate_radius_m"`
}

type rawLimitsConfig struct {
	DailyPlaces    *int `yaml:"daily_places"`
	DailyReports   *int `yaml:"daily_reports"`
	MaxImages      *int `yaml:"max_images"`
	MaxImagesPromo *int `yaml:"max_images_promo"`
}
