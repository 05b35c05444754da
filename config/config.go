package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-ini/ini"

	"github.com/redchat-cluster/bus"
	"github.com/redchat-cluster/database"
)

const (
	defaultConfigName = "conf.ini"
	defaultIDName     = "id.lock"
)

var (
	configDir           = "./"
	dataDir             = "./data"
	defaultConfigFile   = filepath.Join(configDir, defaultConfigName)
	defaultIDConfigFile = filepath.Join(dataDir, defaultIDName)
)

const (
	// ModeSingle 单机启动模式: one process, in-memory stores, loopback bus
	ModeSingle = 1
	// ModeCluster 集群模式: state and fan-out live in redis, any number
	// of stateless instances
	ModeCluster = 2
)

const defaultRoomName = "General"

// ServerConfig ServerConfig
type ServerConfig struct {
	ListenIP        string
	ListenPort      int
	Secret          string
	Origin          string
	Mode            int
	DefaultRoomName string
}

// RedisConfig redis config
type RedisConfig struct {
	IP       string
	Port     int
	Password string
	Db       int
}

// PeerConfig PeerConfig
type PeerConfig struct {
	MaxMessageSize  int
	WriteWait       int
	PongWait        int
	PingPeriod      int
	MessageQueueLen int
}

// Store 后端存储. Populated in main according to the run mode; the hub
// only sees the interfaces.
type Store struct {
	Identity database.IdentityStore
	Rooms    database.RoomStore
	Messages database.MessageLog
	Presence database.PresenceCache
	Bus      bus.Bus
}

// Config 系统配置信息
type Config struct {
	ServerID uint64
	Server   ServerConfig
	Redis    RedisConfig
	Peer     PeerConfig
	Store    Store
}

// LoadConfig LoadConfig
func LoadConfig() (*Config, error) {
	return loadConfig(defaultConfigFile)
}

func loadConfig(file string) (*Config, error) {
	cfg, err := ini.Load(file)
	if err != nil {
		fmt.Printf("Fail to read file: %v", err)
		return nil, err
	}
	var config Config
	section := cfg.Section("server")
	config.Server = ServerConfig{Mode: ModeSingle, DefaultRoomName: defaultRoomName}
	err = section.MapTo(&config.Server)
	if err != nil {
		return nil, err
	}

	section = cfg.Section("redis")
	config.Redis = RedisConfig{}
	err = section.MapTo(&config.Redis)
	if err != nil {
		return nil, err
	}
	section = cfg.Section("peer")
	config.Peer = PeerConfig{}
	err = section.MapTo(&config.Peer)
	if err != nil {
		return nil, err
	}

	// datadir
	if _, err := os.Stat(dataDir); err != nil {
		err = os.MkdirAll(dataDir, os.ModePerm)
		if err != nil {
			fmt.Println(err)
			return nil, err
		}
	}

	config.ServerID, err = BuildServerID()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// BuildServerID build a serverID. Generated once, cached in a lock file
// so the id survives restarts.
func BuildServerID() (uint64, error) {
	_, err := os.Stat(defaultIDConfigFile)
	if err != nil {
		sid := fmt.Sprintf("%d", time.Now().Unix())
		ioutil.WriteFile(defaultIDConfigFile, []byte(sid), 0644)
	}
	fb, err := ioutil.ReadFile(defaultIDConfigFile)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(fb), 10, 64)
}
