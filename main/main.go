package main

import (
	"log"

	"politefetch/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// .env里的配置可以覆盖环境变量缺省
	_ = godotenv.Load()
	if err := cmd.Execute(); err != nil {
		log.Fatalf("run err:%v", err)
	}
}
