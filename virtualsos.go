/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andreas-jonsson/virtualsos/emulator"
	"github.com/andreas-jonsson/virtualsos/platform"
	"github.com/andreas-jonsson/virtualsos/version"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
)

var (
	ver       bool
	profiling string
)

func init() {
	flag.BoolVar(&ver, "v", false, "Print version information")
	flag.StringVar(&profiling, "profile", "", "Write a cpu or mem profile to the working directory")

	flag.Bool("text", false, "Run the console in a terminal screen")
}

func main() {
	flag.Parse()

	if ver {
		fmt.Printf("%s (%s)\n", version.Current.FullString(), version.Hash)
		return
	}

	switch profiling {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		log.Fatalf("unknown profile mode: %s", profiling)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printLogo()
	platform.Start(emulator.Start, platform.ConfigWithContext(ctx))
}

func printLogo() {
	fmt.Print(logo)
	fmt.Println("v" + version.Current.String())
	fmt.Print(" ───────═════ " + version.Copyright + " ══════───────\n\n")
}

var logo = `
██╗   ██╗███████╗ ██████╗ ███████╗
██║   ██║██╔════╝██╔═══██╗██╔════╝
██║   ██║███████╗██║   ██║███████╗
╚██╗ ██╔╝╚════██║██║   ██║╚════██║
 ╚████╔╝ ███████║╚██████╔╝███████║
  ╚═══╝  ╚══════╝ ╚═════╝ ╚══════╝`
