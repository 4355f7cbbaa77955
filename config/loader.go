package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPaths are tried in order when no explicit config file is given.
var DefaultPaths = []string{"config.yml", "./config/config.yml"}

// Default returns the configuration used when no file overrides it.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Port:            8080,
			StaticDir:       "./static",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:        DriverMemory,
			Collection:    "quanlyxe",
			DocumentID:    "vehicle1",
			MongoDatabase: "tracking",
		},
		Vehicle: VehicleConfig{
			Source:       SourceStore,
			PollInterval: 5 * time.Second,
			ReadTimeout:  4 * time.Second,
		},
		Map: MapConfig{
			Zoom:        13,
			TileURL:     "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			ViewerIcon:  "https://cdn.pixabay.com/photo/2014/04/03/10/03/google-309739_640.png",
			VehicleIcon: "https://cdn.pixabay.com/photo/2014/04/03/10/03/google-309740_1280.png",
		},
		Routing: RoutingConfig{
			OSRMURL: "https://router.project-osrm.org",
			Profile: "driving",
			Timeout: 10 * time.Second,
		},
		Notify: NotifyConfig{
			Exchange:   "vehicle_events",
			RoutingKey: "vehicle.alarm",
		},
	}
}

// Load reads the YAML file at path (or the first of DefaultPaths when path is
// empty) over the defaults, applies environment overrides and validates the
// result. A missing default file is not an error; a missing explicit one is.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	data, err := readConfigFile(path)
	if err != nil {
		return AppConfig{}, err
	}
	if data != nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return data, nil
	}
	for _, p := range DefaultPaths {
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
	}
	return nil, nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Store.ProjectID, "FIRESTORE_PROJECT_ID")
	setString(&cfg.Store.CredentialsFile, "FIRESTORE_CREDENTIALS_FILE")
	setString(&cfg.Store.MongoURI, "MONGO_URI")
	setString(&cfg.Store.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Notify.AMQPURL, "AMQP_URL")
	setString(&cfg.Routing.OSRMURL, "OSRM_URL")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func Validate(cfg AppConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}
	if cfg.Vehicle.Source != SourceStore {
		if cfg.Vehicle.FeedURL == "" || cfg.Vehicle.FeedVehicleID == "" {
			return fmt.Errorf("vehicle source %s requires feedURL and feedVehicleID", cfg.Vehicle.Source)
		}
	}
	return nil
}
