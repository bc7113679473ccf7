package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/Arri0/AMI/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "watch":
		if len(os.Args) < 3 {
			usage()
			return
		}
		watchPort(os.Args[2])
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI diagnostics")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list          - List all MIDI ports")
	fmt.Println("  watch <port>  - Print decoded messages from a port")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	select {
	case ins := <-ch:
		for i, p := range ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! The MIDI backend is hung.")
	}
}

func watchPort(name string) {
	port, err := gomidi.FindInPort(name)
	if err != nil {
		fmt.Printf("Port %q not found\n", name)
		return
	}

	stop, err := gomidi.ListenTo(port, func(raw gomidi.Message, timestampms int32) {
		msg, ok := midi.Decode(raw.Bytes())
		if !ok {
			fmt.Printf("%6dms  dropped %v\n", timestampms, raw.Bytes())
			return
		}
		describe(timestampms, msg)
	})
	if err != nil {
		fmt.Printf("Could not listen to %q: %v\n", name, err)
		return
	}
	defer stop()

	fmt.Printf("Watching %q, Ctrl-C to quit\n", name)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}

func describe(timestampms int32, msg midi.Message) {
	switch msg.Type {
	case midi.NoteOn:
		fmt.Printf("%6dms  ch%-2d note on  %3d vel %3d (%.1f Hz)\n",
			timestampms, msg.Channel, msg.Note, msg.Velocity, midi.NoteFrequency(msg.Note))
	case midi.NoteOff:
		fmt.Printf("%6dms  ch%-2d note off %3d\n", timestampms, msg.Channel, msg.Note)
	case midi.ControlChange:
		fmt.Printf("%6dms  ch%-2d cc %3d = %3d\n", timestampms, msg.Channel, msg.Controller, msg.Value)
	case midi.ProgramChange:
		fmt.Printf("%6dms  ch%-2d program %d\n", timestampms, msg.Channel, msg.Program)
	case midi.PitchWheel:
		fmt.Printf("%6dms  ch%-2d wheel %+d\n", timestampms, msg.Channel, midi.WheelSigned(msg.Wheel))
	case midi.PolyAftertouch:
		fmt.Printf("%6dms  ch%-2d touch %3d = %3d\n", timestampms, msg.Channel, msg.Note, msg.Pressure)
	case midi.ChannelAftertouch:
		fmt.Printf("%6dms  ch%-2d touch = %3d\n", timestampms, msg.Channel, msg.Pressure)
	}
}
