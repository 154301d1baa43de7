package main

import (
	"github.com/tendant/simple-upload/internal/server"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Serves jpeg, png and gif uploads on POST /upload and /image/{id}.
func main() {
	server.RunMain(simpleupload.ImagePolicy())
}
