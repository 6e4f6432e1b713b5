// Command snapshot inspects, compresses and seals a snapshot directory.
//
//	snapshot inspect  -dir data/snapshot
//	snapshot compress -dir data/snapshot
//	snapshot seal     -dir data/snapshot
//	snapshot unseal   -dir data/snapshot
//
// The passphrase is read from SNAPSHOT_PASSWORD or prompted for.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/term"

	"intakedash/internal/models"
	"intakedash/internal/services/kvstore"
	"intakedash/internal/services/snapshot"
	"intakedash/internal/services/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dir := fs.String("dir", "data/snapshot", "snapshot directory")
	fs.Parse(os.Args[2:])

	var err error
	switch cmd {
	case "inspect":
		err = inspect(context.Background(), os.Stdout, *dir, os.Getenv("SNAPSHOT_PASSWORD"))
	case "compress":
		err = compress(*dir)
	case "seal":
		err = seal(*dir)
	case "unseal":
		err = unseal(*dir)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: snapshot inspect|compress|seal|unseal [-dir path]")
}

// inspect prints the roster, date range and row counts of every organization
func inspect(ctx context.Context, w io.Writer, dir, password string) error {
	files, err := storage.New(dir)
	if err != nil {
		return err
	}
	if files.IsSealed() {
		if password == "" {
			if password, err = prompt("Passphrase: "); err != nil {
				return err
			}
		}
		if err := files.Unlock(password); err != nil {
			return err
		}
	}

	loader := snapshot.NewLoader(snapshot.NewStorageFetcher(files), kvstore.NewMemory(), nil)
	active, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	orgs, err := loader.Organizations(ctx)
	if err != nil {
		return err
	}

	meta := active.Metadata
	fmt.Fprintf(w, "Date range:  %s to %s\n", meta.DateRange.StartDate, meta.DateRange.EndDate)
	if !meta.ExportedAt.IsZero() {
		fmt.Fprintf(w, "Exported at: %s\n", meta.ExportedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "Sealed:      %t\n\n", files.IsSealed())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORGANIZATION\tNAME\tSUPPLIERS\tVOLUME ROWS\tDOCUMENTS\tFIELD ROWS")
	for _, org := range orgs {
		view, err := loader.View(ctx, org.ID)
		if err != nil {
			return err
		}
		m := view.Slice.Organization
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
			org.ID, org.Name, len(view.Slice.Suppliers), len(m.VolumeByDay), documents(m.VolumeByDay), len(m.Accuracy.PerField.Data))
	}
	return tw.Flush()
}

func documents(rows []models.VolumeRow) int {
	n := 0
	for _, r := range rows {
		n += r.Count
	}
	return n
}

// compress writes the gzip bundle next to the plain one
func compress(dir string) error {
	files, err := storage.New(dir)
	if err != nil {
		return err
	}
	if files.IsSealed() {
		return errors.New("unseal the directory before compressing")
	}

	data, err := files.ReadFile(snapshot.BundleFile)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	if err := files.WriteFile(snapshot.BundleGzipFile, buf.Bytes()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d -> %d bytes)\n", snapshot.BundleGzipFile, len(data), buf.Len())
	return nil
}

func seal(dir string) error {
	files, err := storage.New(dir)
	if err != nil {
		return err
	}

	password, err := passphrase(true)
	if err != nil {
		return err
	}
	if err := files.Seal(password); err != nil {
		return err
	}
	fmt.Printf("Sealed %s\n", dir)
	return nil
}

func unseal(dir string) error {
	files, err := storage.New(dir)
	if err != nil {
		return err
	}
	if !files.IsSealed() {
		return errors.New("directory is not sealed")
	}

	password, err := passphrase(false)
	if err != nil {
		return err
	}
	if err := files.Unseal(password); err != nil {
		return err
	}
	fmt.Printf("Unsealed %s\n", dir)
	return nil
}

// passphrase reads SNAPSHOT_PASSWORD, or prompts (twice when confirm is set)
func passphrase(confirm bool) (string, error) {
	if p := os.Getenv("SNAPSHOT_PASSWORD"); p != "" {
		return p, nil
	}

	p, err := prompt("Passphrase: ")
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := prompt("Confirm passphrase: ")
		if err != nil {
			return "", err
		}
		if again != p {
			return "", errors.New("passphrases do not match")
		}
	}
	return p, nil
}

func prompt(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal for passphrase prompt; set SNAPSHOT_PASSWORD")
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
