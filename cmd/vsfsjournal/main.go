// Command vsfsjournal stages file-creation transactions into a vsfs image's
// journal, and replays committed transactions onto their target blocks.
//
//	vsfsjournal create <filename>
//	vsfsjournal install
//
// The image is pre-formatted by an external mkfs tool; this command never
// creates or formats one.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	times "gopkg.in/djherbis/times.v1"

	"github.com/go-vsfs/vsfs-journal/backend/file"
	"github.com/go-vsfs/vsfs-journal/filesystem/vsfs"
	"github.com/go-vsfs/vsfs-journal/image"
)

func main() {
	imagePath := flag.String("image", "vsfs.img", "path to the vsfs image")
	verbose := flag.Bool("v", false, "log image file timestamps alongside the result")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-image path] [-v] <create <filename>|install>\n", os.Args[0])
		os.Exit(1)
	}

	log := logrus.WithField("txn", uuid.New().String())

	var err error
	switch args[0] {
	case "create":
		if len(args) != 2 {
			fmt.Fprintf(os.Stderr, "Usage: %s create <filename>\n", os.Args[0])
			os.Exit(1)
		}
		err = runCreate(log, *imagePath, args[1], *verbose)
	case "install":
		err = runInstall(log, *imagePath, *verbose)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		os.Exit(1)
	}

	if err != nil {
		log.WithError(err).Error("vsfsjournal failed")
		os.Exit(1)
	}
}

func openImage(imagePath string) (*image.Image, *vsfs.Lock, error) {
	b, err := file.OpenFromPath(imagePath, false)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: make sure you run the mkfs tool first: %w", imagePath, err)
	}
	img := image.Open(b)
	if err := img.Validate(); err != nil {
		img.Close()
		return nil, nil, err
	}
	lock, err := vsfs.Acquire(b)
	if err != nil {
		img.Close()
		return nil, nil, err
	}
	return img, lock, nil
}

func logTimestamps(log *logrus.Entry, imagePath string) {
	t, err := times.Stat(imagePath)
	if err != nil {
		log.WithError(err).Warn("could not read image timestamps")
		return
	}
	fields := logrus.Fields{
		"mtime": t.ModTime(),
	}
	if t.HasChangeTime() {
		fields["ctime"] = t.ChangeTime()
	}
	if t.HasBirthTime() {
		fields["btime"] = t.BirthTime()
	}
	log.WithFields(fields).Info("image timestamps")
}

func runCreate(log *logrus.Entry, imagePath, filename string, verbose bool) error {
	img, lock, err := openImage(imagePath)
	if err != nil {
		return err
	}
	defer img.Close()
	defer lock.Release()

	result, err := vsfs.Stage(img, filename)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"filename": result.Filename,
		"inode":    result.Inode,
	}).Info("staged file creation to journal; run 'install' to commit")

	if verbose {
		logTimestamps(log, imagePath)
	}
	return nil
}

func runInstall(log *logrus.Entry, imagePath string, verbose bool) error {
	img, lock, err := openImage(imagePath)
	if err != nil {
		return err
	}
	defer img.Close()
	defer lock.Release()

	result, err := vsfs.Replay(img)
	if err != nil {
		return err
	}

	switch {
	case !result.Initialized:
		log.Info("journal not initialized or corrupt; nothing to install")
	case result.Empty:
		log.Info("journal is empty")
	default:
		entry := log.WithField("transactions", result.CommittedTransactions)
		if result.DiscardedTail {
			entry = entry.WithField("discarded_incomplete_tail", true)
		}
		entry.Info("install complete")
	}

	if verbose {
		logTimestamps(log, imagePath)
	}
	return nil
}
