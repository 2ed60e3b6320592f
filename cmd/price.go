package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pricetrail/reconcile-cli/internal/geo"
	"github.com/pricetrail/reconcile-cli/internal/ledger"
	"github.com/pricetrail/reconcile-cli/internal/model"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Record and query crowd-submitted prices",
}

var (
	submitVenueName    string
	submitVenueAddress string
	submitVenueLat     float64
	submitVenueLon     float64
	submitVenuePlaceID string
	submitCurrency     string
)

var priceSubmitCmd = &cobra.Command{
	Use:   "submit <product-id> <amount>",
	Short: "Record one price observation at a venue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var amount float64
		if _, err := fmt.Sscanf(args[1], "%f", &amount); err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sub := model.SubmittedVenue{
			Name:        submitVenueName,
			FullAddress: submitVenueAddress,
			PlaceID:     submitVenuePlaceID,
		}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			sub.Latitude = &submitVenueLat
			sub.Longitude = &submitVenueLon
		}

		v, created, err := env.Venues.FindOrCreate(ctx, sub)
		if err != nil {
			return err
		}

		price, inserted, err := env.Ledger.Record(ctx, ledger.Submission{
			ProductID: args[0],
			VenueID:   v.ID,
			Amount:    amount,
			Currency:  submitCurrency,
		})
		if err != nil {
			return err
		}

		if created {
			fmt.Printf("venue %s created\n", v.ID)
		}
		if inserted {
			fmt.Printf("recorded %.2f %s at %s (price %s)\n",
				price.Amount, price.Currency, v.Name, price.ID)
		} else {
			fmt.Printf("duplicate within window, kept existing price %s from %s\n",
				price.ID, price.RecordedAt.Format("15:04:05"))
		}
		return nil
	},
}

var (
	nearbyLat      float64
	nearbyLon      float64
	nearbyRadiusKm float64
	nearbyPerVenue bool
)

var priceNearbyCmd = &cobra.Command{
	Use:   "nearby <product-id>",
	Short: "List recent prices for a product near a location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		radius := nearbyRadiusKm
		if radius == 0 {
			radius = cfg.Geo.DefaultRadiusKm
		}

		q := geo.Query{
			ProductID:     args[0],
			Latitude:      nearbyLat,
			Longitude:     nearbyLon,
			MaxDistanceKm: radius,
		}

		var prices []geo.PriceAtVenue
		if nearbyPerVenue {
			prices, err = env.Search.NearbyVenuePrices(ctx, q)
		} else {
			prices, err = env.Search.NearbyPrices(ctx, q)
		}
		if err != nil {
			return err
		}

		if len(prices) == 0 {
			fmt.Println("no prices found")
			return nil
		}

		fmt.Printf("%-30s  %10s  %-8s  %s\n", "VENUE", "AMOUNT", "CURRENCY", "RECORDED")
		for _, p := range prices {
			fmt.Printf("%-30s  %10.2f  %-8s  %s\n",
				p.VenueName, p.Amount, p.Currency, p.RecordedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	priceSubmitCmd.Flags().StringVar(&submitVenueName, "venue", "", "venue name")
	priceSubmitCmd.Flags().StringVar(&submitVenueAddress, "address", "", "venue full address")
	priceSubmitCmd.Flags().Float64Var(&submitVenueLat, "lat", 0, "venue latitude")
	priceSubmitCmd.Flags().Float64Var(&submitVenueLon, "lon", 0, "venue longitude")
	priceSubmitCmd.Flags().StringVar(&submitVenuePlaceID, "place-id", "", "external place id")
	priceSubmitCmd.Flags().StringVar(&submitCurrency, "currency", "", "ISO currency code (default from config)")

	priceNearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "search latitude")
	priceNearbyCmd.Flags().Float64Var(&nearbyLon, "lon", 0, "search longitude")
	priceNearbyCmd.Flags().Float64Var(&nearbyRadiusKm, "radius-km", 0, "search radius in km (default from config)")
	priceNearbyCmd.Flags().BoolVar(&nearbyPerVenue, "per-venue", false, "collapse to the latest price per venue")

	priceCmd.AddCommand(priceSubmitCmd, priceNearbyCmd)
	rootCmd.AddCommand(priceCmd)
}
