package main

import (
	"github.com/tendant/simple-upload/internal/server"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

func main() {
	server.RunMain(simpleupload.PDFPolicy())
}
