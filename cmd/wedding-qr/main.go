package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/akamensky/argparse"
	"golang.org/x/term"

	"github.com/PRASANNAPATIL12/weddingcard/internal/fetch"
	"github.com/PRASANNAPATIL12/weddingcard/internal/generator"
	"github.com/PRASANNAPATIL12/weddingcard/internal/qrrequest"
	"github.com/PRASANNAPATIL12/weddingcard/internal/qrserver"
	"github.com/PRASANNAPATIL12/weddingcard/internal/style"
	"github.com/PRASANNAPATIL12/weddingcard/internal/wedding"
)

func main() {

	parser := argparse.NewParser("wedding-qr", "Generates a styled QR code PNG for a wedding invitation")

	target := parser.String("u", "url", &argparse.Options{Required: false, Help: "Link to encode. Ignored when --key is given"})
	weddingsFile := parser.String("w", "weddings", &argparse.Options{Required: false, Help: "YAML registry of weddings", Default: "weddings.yaml"})
	key := parser.String("k", "key", &argparse.Options{Required: false, Help: "Shareable id or numeric id of a wedding in the registry"})
	origin := parser.String("", "origin", &argparse.Options{Required: false, Help: "Public origin of invitation links", Default: "http://localhost:8080"})

	fg := parser.String("f", "fg", &argparse.Options{Required: false, Help: "Foreground color #RRGGBB", Default: string(style.Black)})
	bg := parser.String("b", "bg", &argparse.Options{Required: false, Help: "Background color #RRGGBB", Default: string(style.White)})
	shape := parser.String("s", "shape", &argparse.Options{Required: false, Help: "square, rounded, dots, rounded-dots, extra-rounded or classy", Default: string(style.ShapeSquare)})

	out := parser.String("o", "out", &argparse.Options{Required: false, Help: "Output file, '-' for stdout. Defaults to the wedding download name"})

	primary := parser.String("", "primary-endpoint", &argparse.Options{Required: false, Help: "Image service for square-module shapes", Default: qrrequest.DefaultPrimaryEndpoint})
	dots := parser.String("", "dots-endpoint", &argparse.Options{Required: false, Help: "Image service for dot shapes, rendered in-process when empty"})
	local := parser.Flag("l", "local", &argparse.Options{Required: false, Help: "Render QR images in-process instead of calling an image service"})
	timeout := parser.Int("t", "timeout", &argparse.Options{Required: false, Help: "Fetch timeout in seconds", Default: 15})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Required: false, Help: "Debug logging"})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	link, filename, err := resolveTarget(*target, *weddingsFile, *key, *origin)
	if err != nil {
		fail(err)
	}
	if *out != "" {
		filename = *out
	}

	sel, err := parseSelection(*shape, *fg, *bg)
	if err != nil {
		fail(err)
	}

	fetchTimeout := time.Duration(*timeout) * time.Second
	endpoints, client := imageClient(*local, *primary, *dots, fetchTimeout, logger)

	gen := generator.New(generator.Options{
		Builder: qrrequest.NewBuilder(endpoints),
		Fetcher: fetch.New(fetch.Options{Client: client, Logger: logger}),
		Logger:  logger,
	})
	defer gen.Close()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout+5*time.Second)
	defer cancel()

	res, err := gen.Render(ctx, link, sel)
	if err != nil {
		fail(fmt.Errorf("generating QR code for %s: %w", link, err))
	}
	logger.Debug("image request", "url", res.Descriptor.URL())

	if err := writeOutput(filename, res.PNG); err != nil {
		fail(err)
	}
	if filename != "-" {
		fmt.Printf("QR code for %s written to %s\n", link, filename)
	}
}

// imageClient picks the endpoints and the HTTP client. The styled dots
// contract is only understood by the built-in renderer, so without an explicit
// dots endpoint dot shapes are rendered in-process while the primary endpoint
// still goes over the network.
func imageClient(local bool, primary, dots string, timeout time.Duration, logger *slog.Logger) (qrrequest.Endpoints, *http.Client) {
	builtin := qrserver.Endpoints(qrserver.LocalBaseURL)
	if local {
		return builtin, &http.Client{Transport: qrserver.NewTransport(logger), Timeout: timeout}
	}
	client := fetch.NewHTTPClient(timeout, 5*time.Second)
	if dots != "" {
		return qrrequest.Endpoints{Primary: primary, Dots: dots}, client
	}
	client.Transport = qrserver.NewRoutingTransport(logger, client.Transport)
	return qrrequest.Endpoints{Primary: primary, Dots: builtin.Dots}, client
}

// resolveTarget returns the link to encode and the default output name.
func resolveTarget(rawURL, weddingsFile, key, origin string) (string, string, error) {
	if key != "" {
		reg, err := wedding.LoadFile(weddingsFile)
		if err != nil {
			return "", "", err
		}
		w, err := reg.Lookup(key)
		if err != nil {
			return "", "", fmt.Errorf("%s in %s: %w", key, weddingsFile, err)
		}
		return w.TargetURL(origin), w.DownloadFilename(), nil
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", "", errors.New("either --url or --key is required")
	}
	return rawURL, wedding.DownloadFilename("", ""), nil
}

func parseSelection(shape, fg, bg string) (style.Selection, error) {
	id, err := style.ParseShape(shape)
	if err != nil {
		return style.Selection{}, err
	}
	fgc, err := style.ParseColor(fg)
	if err != nil {
		return style.Selection{}, fmt.Errorf("--fg: %w", err)
	}
	bgc, err := style.ParseColor(bg)
	if err != nil {
		return style.Selection{}, fmt.Errorf("--bg: %w", err)
	}
	return style.Selection{Shape: id, Foreground: fgc, Background: bgc}, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("refusing to write PNG data to a terminal, redirect stdout or use --out")
		}
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
