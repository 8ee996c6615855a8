package broker

import (
	"fmt"
	"strings"
	"time"

	"github.com/ghalamif/SensorLog/internal/ports"
)

const (
	KindMQTT     = "mqtt"
	KindRedis    = "redis"
	KindNATS     = "nats"
	KindPostgres = "postgres"
)

// Kinds lists the network brokers New can build.
func Kinds() []string { return []string{KindMQTT, KindRedis, KindNATS, KindPostgres} }

// Config is the transport-neutral broker section. Endpoints are server URLs
// for mqtt and nats, a host:port for redis (first entry) and a DSN for
// postgres (first entry).
type Config struct {
	Kind           string
	Endpoints      []string
	ClientID       string
	Username       string
	Password       string
	Token          string
	QoS            byte
	Retain         bool
	ConnectTimeout time.Duration
	DrainTimeout   time.Duration
	RedisDB        int
	StreamMaxLen   int64
	Table          string
	CreateTable    bool
}

func New(cfg Config) (ports.Broker, error) {
	switch strings.ToLower(cfg.Kind) {
	case KindMQTT, "":
		return NewMQTT(MQTTConfig{
			Endpoints:      cfg.Endpoints,
			ClientID:       cfg.ClientID,
			Username:       cfg.Username,
			Password:       cfg.Password,
			QoS:            cfg.QoS,
			Retain:         cfg.Retain,
			ConnectTimeout: cfg.ConnectTimeout,
			Quiesce:        cfg.DrainTimeout,
		})
	case KindRedis:
		return NewRedisStream(RedisConfig{
			Addr:     first(cfg.Endpoints),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			MaxLen:   cfg.StreamMaxLen,
		})
	case KindNATS:
		return NewNATS(NATSConfig{
			Endpoints:    cfg.Endpoints,
			ClientName:   cfg.ClientID,
			Username:     cfg.Username,
			Password:     cfg.Password,
			Token:        cfg.Token,
			Timeout:      cfg.ConnectTimeout,
			DrainTimeout: cfg.DrainTimeout,
		})
	case KindPostgres:
		return NewPostgres(PostgresConfig{
			DSN:         first(cfg.Endpoints),
			Table:       cfg.Table,
			CreateTable: cfg.CreateTable,
		})
	default:
		return nil, fmt.Errorf("unknown broker kind %q (expected one of: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
