// rfsend transmits a single steering command for bench and range testing,
// without GPS or a broker in the loop.
package main

import (
	"flag"
	"log"

	"periph.io/x/host/v3"

	"github.com/tidewater-labs/helmsman/internal/config"
	"github.com/tidewater-labs/helmsman/internal/rf"
)

func main() {
	configPath := flag.String("config", "./helm_config.txt", "path to configuration file")
	command := flag.String("cmd", "right", "steering command: left or right")
	repeat := flag.Int("n", 3, "number of frame repeats")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	cfg := config.Get()

	var cmd rf.Command
	switch *command {
	case "left":
		cmd = rf.SteerLeft
	case "right":
		cmd = rf.SteerRight
	default:
		log.Fatalf("fatal: unknown command %q (want left or right)", *command)
	}

	if _, err := host.Init(); err != nil {
		log.Fatalf("fatal: periph host init: %v", err)
	}

	line, err := rf.NewPinLine(cfg.RFDataPin)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	radio, err := rf.NewRadio(cfg.RFSPIDevice, cfg.RFResetPin)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	defer radio.Close()

	tx := rf.NewTransmitter(line, radio, rf.DefaultTiming)
	if err := tx.Begin(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	log.Printf("transmitting %s x%d", cmd, *repeat)
	tx.Transmit(cmd, *repeat)
	log.Println("done")
}
