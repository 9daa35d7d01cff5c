package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/openfuelmap/fuelfinder/internal/controller"
	"github.com/openfuelmap/fuelfinder/internal/geo"
	"github.com/openfuelmap/fuelfinder/internal/markers"
	"github.com/openfuelmap/fuelfinder/internal/search"
	"github.com/openfuelmap/fuelfinder/internal/server"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search fuel stations around a city and print them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "city",
				Usage:    "City to search around",
				Required: true,
			},
			&cli.Float64Flag{
				Name:    "radius",
				Aliases: []string{"r"},
				Usage:   "Search radius in kilometers",
				Value:   server.DefaultRadiusKm,
			},
			&cli.StringFlag{
				Name:  "fuel",
				Usage: "Fuel type (benzina, diesel, gpl, metano)",
				Value: string(prezzi.FuelBenzina),
			},
			&cli.IntFlag{
				Name:    "results",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results",
				Value:   server.DefaultMaxResults,
			},
			&cli.StringFlag{
				Name:  "nominatim-url",
				Usage: "Nominatim server URL",
				Value: geo.DefaultNominatimServer,
			},
			&cli.StringFlag{
				Name:  "prezzi-url",
				Usage: "Fuel price provider URL",
				Value: prezzi.DefaultBaseURL,
			},
		},
		Action: searchAction,
	}
}

func searchAction(c *cli.Context) error {
	fuel, err := prezzi.ParseFuelType(c.String("fuel"))
	if err != nil {
		return err
	}

	geocoder, err := geo.NewNominatimGeocoder(c.String("nominatim-url"))
	if err != nil {
		return err
	}

	logger := slog.New(slog.DiscardHandler)
	resolver := geo.NewResolver(geo.ResolverOptions{Geocoder: geocoder, Logger: logger})
	client := prezzi.NewClient(prezzi.Options{BaseURL: c.String("prezzi-url")})
	fetcher := search.NewFetcher(client, logger)
	orchestrator := search.NewOrchestrator(resolver, fetcher, logger)

	ctx, cancel := context.WithTimeout(c.Context, controller.DefaultTimeout)
	defer cancel()

	out := orchestrator.Search(ctx, c.String("city"), c.Float64("radius"), fuel, c.Int("results"))
	if out.Warning != "" {
		fmt.Println(out.Warning)
	}

	for i, st := range out.Stations {
		name := st.Operator
		if name == "" {
			name = "Fuel station"
		}
		fmt.Printf("%d. %s (%s)\n", i+1, name, st.Address)
		fmt.Printf("   Distance: %.2f km\n", st.DistanceKm)
		for _, fp := range st.FuelPrices {
			fmt.Printf("   %s: %s\n", fp.Type, markers.FormatPrice(fp.Price))
		}
		fmt.Printf("   Coordinates: %f, %f\n\n", st.Latitude, st.Longitude)
	}
	fmt.Printf("Found %d stations within %g km radius\n", len(out.Stations), c.Float64("radius"))

	return nil
}
