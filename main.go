package main

import (
	"github.com/AndyKimLi/cottage-booking/startup"
	"github.com/AndyKimLi/cottage-booking/startup/config"
)

func main() {
	cfg := config.NewConfig()
	server := startup.NewServer(cfg)
	server.Start()
}
