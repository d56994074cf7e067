/*
DESCRIPTION
  snapcam is a periodic image capture and upload client. It captures a
  frame from the camera peripheral at a fixed period, encodes it for
  transport and uploads it as a timestamped JSON document to the cloud
  image store, using credentials held in persistent on-device storage.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the snapcam periodic capture-and-upload client.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/snapcam/cam"
	"github.com/ausocean/snapcam/cam/config"
	"github.com/ausocean/snapcam/cloud"
	"github.com/ausocean/snapcam/creds"
	"github.com/ausocean/snapcam/driver"
	"github.com/ausocean/snapcam/driver/gpio"
	"github.com/ausocean/snapcam/driver/still"
	"github.com/ausocean/snapcam/driver/testcam"
	"github.com/ausocean/snapcam/wifi"
	"github.com/ausocean/utils/logging"
)

// Current software version.
const version = "v1.0.0"

// Logging configuration.
const (
	logPath      = "/var/log/snapcam/snapcam.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// Misc constants.
const (
	pkg             = "snapcam: "
	defaultPeriod   = 30 * time.Second
	defaultCredsDir = "/var/lib/snapcam/creds"
	defaultVarsPath = "/etc/snapcam/vars"
	timestampLayout = "20060102_150405"
)

func main() {
	showVersion := flag.Bool("version", false, "show version")
	sim := flag.Bool("sim", false, "use a simulated camera and skip network setup")
	credsDir := flag.String("creds", defaultCredsDir, "credential store directory")
	varsPath := flag.String("vars", defaultVarsPath, "configuration variables file")
	period := flag.Duration("period", defaultPeriod, "capture period")
	illumPin := flag.Int("illum-pin", -1, "illumination GPIO line offset, -1 for none")
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}

	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info("starting snapcam", "version", version, "sim", *sim)

	// Load credentials from the on-device store, seeding placeholders on
	// first run so a technician has named fields to fill in.
	cs, err := creds.Open(*credsDir)
	if err != nil {
		log.Fatal(pkg+"could not open credential store", "error", err.Error())
	}
	defer cs.Close()

	exist, err := cs.Exist()
	if err != nil {
		log.Fatal(pkg+"could not check credential store", "error", err.Error())
	}
	if !exist {
		log.Warning(pkg + "no credentials provisioned, seeding placeholders")
		err = cs.Save(&creds.Credentials{
			WiFiSSID:     "your-ssid",
			WiFiPass:     "your-pass",
			CloudProject: "your-project",
			CloudDBURL:   "https://your-project.example.com",
			CloudAPIKey:  "your-api-key",
		})
		if err != nil {
			log.Fatal(pkg+"could not seed credential store", "error", err.Error())
		}
	}
	cred, err := cs.Load()
	if err != nil {
		log.Fatal(pkg+"could not load credentials", "error", err.Error())
	}

	// Join the network, unless simulating.
	if !*sim {
		wm := wifi.NewManager(log)
		err = wm.Connect(cred.WiFiSSID, cred.WiFiPass)
		if err != nil {
			log.Fatal(pkg+"could not connect to network", "error", err.Error())
		}
		ip, err := wm.IP()
		if err != nil {
			log.Warning(pkg+"could not get device address", "error", err.Error())
		} else {
			log.Info(pkg+"network up", "ip", ip)
		}
	}

	sender, err := cloud.NewSender(cred.CloudDBURL, cred.CloudAPIKey, log,
		cloud.WithReportCallback(func(sent int, err error) {
			if err != nil {
				log.Warning(pkg+"upload report", "error", err.Error())
				return
			}
			log.Debug(pkg+"upload report", "sent", sent)
		}),
	)
	if err != nil {
		log.Fatal(pkg+"could not create cloud sender", "error", err.Error())
	}

	// Select the capture driver and illumination line.
	var (
		drv   driver.Driver
		light driver.Light
	)
	if *sim {
		drv = testcam.New()
	} else {
		drv = still.New(log)
		if *illumPin >= 0 {
			light, err = gpio.NewLight(gpio.DefaultChip, *illumPin, log)
			if err != nil {
				log.Fatal(pkg+"could not open illumination line", "error", err.Error())
			}
			defer light.Close()
		}
	}

	cfg := &config.Config{Logger: log}
	if vars, err := readVars(*varsPath); err != nil {
		log.Warning(pkg+"could not read vars file, using defaults", "error", err.Error())
	} else {
		cfg.Update(vars)
	}

	c := cam.New(drv, light, log)
	err = c.Init(cfg)
	if err != nil {
		log.Fatal(pkg+"could not initialize camera", "error", err.Error())
	}
	defer func() {
		err := c.Deinit()
		if err != nil {
			log.Error(pkg+"could not deinitialize camera", "error", err.Error())
		}
	}()

	c.Diagnostic()

	// Watch the vars file and reconfigure the camera on change.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warning(pkg+"could not create vars watcher", "error", err.Error())
	} else {
		defer watcher.Close()
		err = watcher.Add(*varsPath)
		if err != nil {
			log.Warning(pkg+"could not watch vars file", "error", err.Error())
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*period)
	defer ticker.Stop()

	log.Info(pkg+"entering capture loop", "period", period.String())
	captureAndUpload(c, sender, log)
	for {
		select {
		case <-ticker.C:
			captureAndUpload(c, sender, log)

		case ev, ok := <-watcherEvents(watcher):
			if !ok {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			log.Info(pkg + "vars file changed, reconfiguring")
			reconfigure(c, *varsPath, log)

		case err, ok := <-watcherErrors(watcher):
			if ok && err != nil {
				log.Warning(pkg+"vars watcher error", "error", err.Error())
			}

		case s := <-sig:
			log.Info(pkg+"received signal, shutting down", "signal", s.String())
			return
		}
	}
}

// captureAndUpload performs one capture-encode-upload cycle. Errors skip
// the cycle; the next tick tries again.
func captureAndUpload(c *cam.Camera, sender *cloud.Sender, log logging.Logger) {
	ts := time.Now().UTC().Format(timestampLayout)

	enc, err := c.CaptureBase64()
	if err != nil {
		log.Warning(pkg+"capture failed, skipping cycle", "error", err.Error())
		return
	}
	defer enc.Free()

	err = sender.Upload(enc.String(), ts)
	if err != nil {
		log.Warning(pkg+"upload failed, skipping cycle", "error", err.Error())
		return
	}
	log.Info(pkg+"cycle complete", "timestamp", ts, "encodedBytes", enc.Len())
}

// reconfigure tears the camera down, applies the updated vars and brings
// it back up. On failure the camera is left deinitialized; the operator
// sees the error and the next vars write retries.
func reconfigure(c *cam.Camera, varsPath string, log logging.Logger) {
	vars, err := readVars(varsPath)
	if err != nil {
		log.Warning(pkg+"could not read vars file, keeping current config", "error", err.Error())
		return
	}

	err = c.Deinit()
	if err != nil {
		log.Warning(pkg+"deinit during reconfigure failed", "error", err.Error())
	}

	cfg := &config.Config{Logger: log}
	cfg.Update(vars)
	err = c.Init(cfg)
	if err != nil {
		log.Error(pkg+"could not reinitialize camera with new config", "error", err.Error())
	}
}

// readVars parses a vars file of key=value lines. Blank lines and lines
// beginning with # are ignored.
func readVars(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vars := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return vars, sc.Err()
}

// watcherEvents returns the watcher's event channel, or nil (blocking
// forever in select) when the watcher could not be created.
func watcherEvents(w *fsnotify.Watcher) chan fsnotify.Event {
	if w == nil {
		return nil
	}
	return w.Events
}

func watcherErrors(w *fsnotify.Watcher) chan error {
	if w == nil {
		return nil
	}
	return w.Errors
}
