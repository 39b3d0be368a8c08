package main

import (
	"log"
	"time"

	_ "github.com/anoixa/image-shelf/docs"

	"github.com/anoixa/image-shelf/config"

	"github.com/anoixa/image-shelf/cmd"
)

// @title                       Image Shelf API
// @description                 Personal image library: uploads with name-collision handling, folders, short links and URL imports.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func init() {
	var cstZone = time.FixedZone("CST", 8*3600) // 东八
	time.Local = cstZone
}

func main() {
	log.Print(config.BuildInfo())
	cmd.Execute()
}
