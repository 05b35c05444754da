package main

import (
	"log"
	"math"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/redchat-cluster/bus"
	"github.com/redchat-cluster/config"
	"github.com/redchat-cluster/database"
	"github.com/redchat-cluster/hub"
)

func handleInterrupt(hub *hub.Hub, sc chan os.Signal) {
	select {
	case <-sc:
		hub.Close()
	}
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	// read config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Panicln(err)
	}

	var store config.Store
	if cfg.Server.Mode == config.ModeCluster {
		redisdb := database.InitRedis(cfg.Redis.IP, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.Db)

		// message scores are local unix timestamps; refuse to start on a
		// clock too far from the store's
		t1 := time.Now()
		serverTime, err := redisdb.Time().Result()
		t2 := time.Now()
		if err != nil {
			log.Panicln(err)
		}
		serverTime = serverTime.Add(t2.Sub(t1))
		if math.Abs(float64(serverTime.Sub(time.Now())/time.Millisecond)) > 500 {
			log.Panicln("system time is incorrect")
		}

		store.Identity = database.NewRedisIdentityStore(redisdb)
		store.Rooms = database.NewRedisRoomStore(redisdb)
		store.Messages = database.NewRedisMessageLog(redisdb)
		store.Presence = database.NewRedisPresenceCache(redisdb)
		store.Bus = bus.NewRedisBus(redisdb, cfg.ServerID)
	} else {
		rooms := database.NewMemRoomStore()
		store.Identity = database.NewMemIdentityStore(rooms)
		store.Rooms = rooms
		store.Messages = database.NewMemMessageLog()
		store.Presence = database.NewMemPresenceCache()
		store.Bus = bus.NewMemBus(bus.NewMemChannel(), cfg.ServerID)
	}
	cfg.Store = store

	// new server
	hub, err := hub.NewHub(cfg)
	if err != nil {
		log.Panicln(err)
	}
	// listen sys.exit
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, os.Interrupt)

	go handleInterrupt(hub, sc)

	if err := hub.Run(); err != nil {
		log.Panicln(err)
	}
}
