package node

import (
	"fmt"
	"log"
	"os"
)

// Logger is the minimal logging surface a node needs. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, args ...interface{})
}

func defaultLogger(name string) Logger {
	return log.New(os.Stderr, fmt.Sprintf("[%s] ", name), log.LstdFlags|log.Lmicroseconds)
}
