package config

import "time"

const (
	DriverMemory    = "memory"
	DriverFirestore = "firestore"
	DriverMongo     = "mongo"
	DriverPostgres  = "postgres"

	SourceStore    = "store"
	SourceGTFSRT   = "gtfsrt"
	SourceSiriJSON = "siri_json"
)

// ServerConfig contains server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	StaticDir       string        `yaml:"staticDir" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`
}

// StoreConfig selects and addresses the vehicle document store
type StoreConfig struct {
	Driver          string `yaml:"driver" validate:"oneof=memory firestore mongo postgres"`
	Collection      string `yaml:"collection" validate:"required"`
	DocumentID      string `yaml:"documentID" validate:"required"`
	ProjectID       string `yaml:"projectID" validate:"required_if=Driver firestore"`
	CredentialsFile string `yaml:"credentialsFile"`
	MongoURI        string `yaml:"mongoURI" validate:"required_if=Driver mongo"`
	MongoDatabase   string `yaml:"mongoDatabase" validate:"required_if=Driver mongo"`
	DatabaseURL     string `yaml:"databaseURL" validate:"required_if=Driver postgres"`
}

// VehicleConfig controls where vehicle positions come from and how often
type VehicleConfig struct {
	Source        string        `yaml:"source" validate:"oneof=store gtfsrt siri_json"`
	FeedURL       string        `yaml:"feedURL" validate:"omitempty,url"`
	FeedVehicleID string        `yaml:"feedVehicleID"`
	PollInterval  time.Duration `yaml:"pollInterval" validate:"gt=0"`
	ReadTimeout   time.Duration `yaml:"readTimeout" validate:"gte=0"`
}

// MapConfig describes how the page initializes its map
type MapConfig struct {
	Zoom        int    `yaml:"zoom" validate:"gte=0,lte=22"`
	TileURL     string `yaml:"tileURL" validate:"required"`
	ViewerIcon  string `yaml:"viewerIcon"`
	VehicleIcon string `yaml:"vehicleIcon"`
}

// RoutingConfig points at an OSRM-compatible routing service
type RoutingConfig struct {
	OSRMURL string        `yaml:"osrmURL" validate:"required,url"`
	Profile string        `yaml:"profile" validate:"required"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// NotifyConfig configures optional alarm event publishing
type NotifyConfig struct {
	AMQPURL    string `yaml:"amqpURL" validate:"omitempty,url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routingKey"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Vehicle VehicleConfig `yaml:"vehicle"`
	Map     MapConfig     `yaml:"map"`
	Routing RoutingConfig `yaml:"routing"`
	Notify  NotifyConfig  `yaml:"notify"`
}
