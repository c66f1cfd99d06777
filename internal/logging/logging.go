package logging

import (
	"log"
	"os"
)

func New() *log.Logger {
	return log.New(os.Stdout, "pathprobe ", log.LstdFlags|log.LUTC)
}
