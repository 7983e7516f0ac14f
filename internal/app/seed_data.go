package app

import "brokerage_site/internal/domain"

// Fixed initial dataset inserted on first deployment. Functions return fresh
// slices so callers can never mutate the canonical data.

func seedMeta(featured bool) domain.Meta {
	return domain.Meta{Published: true, Featured: featured}
}

func img(id string) string {
	return "https://images.unsplash.com/photo-" + id + "?auto=format&fit=crop&w=1600&q=80"
}

func SeedProperties() []domain.Property {
	return []domain.Property{
		{
			Meta:         seedMeta(true),
			Title:        "Oceanfront Estate",
			Description:  "A gated oceanfront estate with private beach access, infinity pool and a detached guest house.",
			Price:        12500000,
			Currency:     "USD",
			Location:     "1200 Ocean Blvd, Malibu, CA",
			City:         "Malibu",
			Bedrooms:     6,
			Bathrooms:    7.5,
			Area:         9800,
			PropertyType: "estate",
			Status:       "for-sale",
			Images:       []string{img("1613490493576-7fde63acd811"), img("1600596542815-ffad4c1539a9")},
			Amenities:    []string{"Private beach", "Infinity pool", "Guest house", "Wine cellar"},
		},
		{
			Meta:         seedMeta(true),
			Title:        "Skyline Penthouse",
			Description:  "Full-floor penthouse with 360-degree city views, a wraparound terrace and private elevator.",
			Price:        8900000,
			Currency:     "USD",
			Location:     "88 Park Ave, New York, NY",
			City:         "New York",
			Bedrooms:     4,
			Bathrooms:    4.5,
			Area:         5200,
			PropertyType: "penthouse",
			Status:       "for-sale",
			Images:       []string{img("1512917774080-9991f1c4c750")},
			Amenities:    []string{"Private elevator", "Terrace", "Concierge", "Gym"},
		},
		{
			Meta:         seedMeta(true),
			Title:        "Hillside Modern Villa",
			Description:  "Architect-designed villa set into the hills with floor-to-ceiling glass and canyon views.",
			Price:        6750000,
			Currency:     "USD",
			Location:     "45 Canyon Ridge Rd, Beverly Hills, CA",
			City:         "Beverly Hills",
			Bedrooms:     5,
			Bathrooms:    6,
			Area:         7100,
			PropertyType: "villa",
			Status:       "for-sale",
			Images:       []string{img("1600585154340-be6161a56a0c")},
			Amenities:    []string{"Home theater", "Pool", "Smart home", "Three-car garage"},
		},
		{
			Meta:         seedMeta(true),
			Title:        "Lakeside Retreat",
			Description:  "Timber and stone retreat on two acres of private lakefront with a boathouse and dock.",
			Price:        3200000,
			Currency:     "USD",
			Location:     "7 Shoreline Dr, Lake Tahoe, NV",
			City:         "Lake Tahoe",
			Bedrooms:     4,
			Bathrooms:    3.5,
			Area:         4100,
			PropertyType: "house",
			Status:       "for-sale",
			Images:       []string{img("1580587771525-78b9dba3b914")},
			Amenities:    []string{"Boathouse", "Private dock", "Fireplace"},
		},
		{
			Meta:         seedMeta(true),
			Title:        "Downtown Luxury Loft",
			Description:  "Converted warehouse loft with exposed brick, 14-foot ceilings and a rooftop deck.",
			Price:        12500,
			Currency:     "USD",
			Location:     "310 Arts District, Los Angeles, CA",
			City:         "Los Angeles",
			Bedrooms:     2,
			Bathrooms:    2,
			Area:         2300,
			PropertyType: "apartment",
			Status:       "for-rent",
			Images:       []string{img("1502672260266-1c1ef2d93688")},
			Amenities:    []string{"Rooftop deck", "Doorman", "Parking"},
		},
		{
			Meta:         seedMeta(true),
			Title:        "Mediterranean Waterfront Home",
			Description:  "Bayfront home with a 90-foot dock, summer kitchen and resort-style pool.",
			Price:        5400000,
			Currency:     "USD",
			Location:     "22 Harbor Isle, Miami Beach, FL",
			City:         "Miami Beach",
			Bedrooms:     5,
			Bathrooms:    5.5,
			Area:         6200,
			PropertyType: "house",
			Status:       "for-sale",
			Images:       []string{img("1564013799919-ab600027ffc6")},
			Amenities:    []string{"Boat dock", "Summer kitchen", "Pool", "Bay views"},
		},
		{
			Meta:         seedMeta(false),
			Title:        "Garden Townhouse",
			Description:  "Three-level townhouse with a landscaped rear garden close to parks and schools.",
			Price:        1450000,
			Currency:     "USD",
			Location:     "14 Elm Row, Brooklyn, NY",
			City:         "Brooklyn",
			Bedrooms:     3,
			Bathrooms:    2.5,
			Area:         2100,
			PropertyType: "townhouse",
			Status:       "for-sale",
			Images:       []string{img("1570129477492-45c003edd2be")},
			Amenities:    []string{"Garden", "Fireplace"},
		},
		{
			Meta:         seedMeta(false),
			Title:        "Coastal Family Home",
			Description:  "Bright family home a short walk from the beach with an open kitchen and large yard.",
			Price:        2150000,
			Currency:     "USD",
			Location:     "9 Sandpiper Ln, San Diego, CA",
			City:         "San Diego",
			Bedrooms:     4,
			Bathrooms:    3,
			Area:         2900,
			PropertyType: "house",
			Status:       "for-sale",
			Images:       []string{img("1568605114967-8130f3a36994")},
			Amenities:    []string{"Yard", "Two-car garage"},
		},
		{
			Meta:         seedMeta(false),
			Title:        "Urban Condo with City Views",
			Description:  "Corner unit on a high floor with a full-service building and fitness center.",
			Price:        4800,
			Currency:     "USD",
			Location:     "500 Market St, San Francisco, CA",
			City:         "San Francisco",
			Bedrooms:     1,
			Bathrooms:    1,
			Area:         850,
			PropertyType: "condo",
			Status:       "for-rent",
			Images:       []string{img("1545324418-cc1a3fa10c00")},
			Amenities:    []string{"Fitness center", "Concierge"},
		},
		{
			Meta:         seedMeta(false),
			Title:        "Desert Contemporary",
			Description:  "Single-level contemporary with mountain views, a saltwater pool and a courtyard.",
			Price:        1890000,
			Currency:     "USD",
			Location:     "61 Mesa Vista, Scottsdale, AZ",
			City:         "Scottsdale",
			Bedrooms:     3,
			Bathrooms:    3.5,
			Area:         3300,
			PropertyType: "house",
			Status:       "pending",
			Images:       []string{img("1600047509807-ba8f99d2cdde")},
			Amenities:    []string{"Saltwater pool", "Courtyard", "Solar"},
		},
		{
			Meta:         seedMeta(false),
			Title:        "Historic Brownstone",
			Description:  "Restored 1890s brownstone with original moldings, four fireplaces and a garden level.",
			Price:        3950000,
			Currency:     "USD",
			Location:     "118 Beacon St, Boston, MA",
			City:         "Boston",
			Bedrooms:     5,
			Bathrooms:    4,
			Area:         4600,
			PropertyType: "townhouse",
			Status:       "for-sale",
			Images:       []string{img("1605276374104-dee2a0ed3cd6")},
			Amenities:    []string{"Fireplaces", "Garden level", "Roof deck"},
		},
		{
			Meta:         seedMeta(false),
			Title:        "Mountain View Ranch",
			Description:  "Forty-acre ranch with a main lodge, horse barn and trail access.",
			Price:        2750000,
			Currency:     "USD",
			Location:     "3 Aspen Trail, Jackson, WY",
			City:         "Jackson",
			Bedrooms:     4,
			Bathrooms:    4,
			Area:         5000,
			PropertyType: "land",
			Status:       "sold",
			Images:       []string{img("1500382017468-9049fed747ef")},
			Amenities:    []string{"Horse barn", "Trail access", "Guest cabin"},
		},
	}
}

func SeedTestimonials() []domain.Testimonial {
	return []domain.Testimonial{
		{Meta: seedMeta(true), Name: "Sarah Mitchell", Role: "Home buyer", Location: "Malibu, CA", Rating: 5,
			Content: "They found us a home we did not know existed and negotiated well below asking. Exceptional service from start to finish."},
		{Meta: seedMeta(true), Name: "David Chen", Role: "Investor", Location: "New York, NY", Rating: 5,
			Content: "Deep market knowledge and honest advice. Our portfolio has grown with every transaction we closed together."},
		{Meta: seedMeta(true), Name: "Maria Gonzalez", Role: "Seller", Location: "Miami Beach, FL", Rating: 5,
			Content: "Our property sold in nine days above list price. The staging and marketing plan made all the difference."},
		{Meta: seedMeta(false), Name: "James Porter", Role: "First-time buyer", Location: "Brooklyn, NY", Rating: 4,
			Content: "Patient, responsive and clear about every step. We never felt rushed into a decision."},
		{Meta: seedMeta(false), Name: "Emily Rhodes", Role: "Relocation client", Location: "Boston, MA", Rating: 5,
			Content: "Relocating across the country felt effortless. Virtual tours and a trusted local network made it work."},
		{Meta: seedMeta(false), Name: "Robert Alvarez", Role: "Seller", Location: "Scottsdale, AZ", Rating: 4,
			Content: "Professional team with great photography and an accurate pricing strategy."},
	}
}

func SeedBlogPosts() []domain.BlogPost {
	return []domain.BlogPost{
		{Meta: seedMeta(true), Title: "Luxury Market Outlook for the Coming Year", Author: "Editorial Team", Category: "Market Insights",
			Tags: []string{"market", "luxury", "forecast"}, ReadMinutes: 6, CoverImage: img("1560518883-ce09059eeffa"),
			Excerpt: "Inventory, rates and buyer sentiment in the high-end segment.",
			Content: "High-end inventory remains tight in coastal markets while demand from relocating buyers stays strong. We look at pricing, days on market and what it means for buyers and sellers."},
		{Meta: seedMeta(true), Title: "Staging Tips That Sell Homes Faster", Author: "Editorial Team", Category: "Selling",
			Tags: []string{"staging", "selling"}, ReadMinutes: 4, CoverImage: img("1600210492486-724fe5c67fb0"),
			Excerpt: "Small changes that make listings stand out.",
			Content: "Declutter, neutralize and light every room. Professional photography and a clear story for each space help buyers picture themselves in the home."},
		{Meta: seedMeta(true), Title: "A Buyer's Guide to Waterfront Property", Author: "Editorial Team", Category: "Buying",
			Tags: []string{"waterfront", "buying", "guide"}, ReadMinutes: 8, CoverImage: img("1507525428034-b723cf961d3e"),
			Excerpt: "Flood zones, docks, insurance and inspections explained.",
			Content: "Waterfront homes carry unique considerations: elevation certificates, seawall condition, riparian rights and insurance. Here is a checklist to work through before making an offer."},
		{Meta: seedMeta(false), Title: "Understanding Closing Costs", Author: "Editorial Team", Category: "Buying",
			Tags: []string{"closing", "finance"}, ReadMinutes: 5,
			Excerpt: "What buyers and sellers should budget for at closing.",
			Content: "Title insurance, escrow fees, transfer taxes and lender charges add up. We break down who typically pays what and how to plan ahead."},
		{Meta: seedMeta(false), Title: "Why Pre-Approval Matters", Author: "Editorial Team", Category: "Finance",
			Tags: []string{"mortgage", "finance"}, ReadMinutes: 3,
			Excerpt: "Stronger offers start with a pre-approval letter.",
			Content: "A pre-approval shows sellers you are serious and sets a realistic budget. Learn how it differs from pre-qualification."},
		{Meta: seedMeta(false), Title: "Neighborhood Spotlight: Miami Beach", Author: "Editorial Team", Category: "Neighborhoods",
			Tags: []string{"miami", "neighborhoods"}, ReadMinutes: 5,
			Excerpt: "Lifestyle, schools and price trends on the island.",
			Content: "From South of Fifth to North Beach, each pocket of Miami Beach offers a different pace of life. We cover amenities, commute times and recent sales."},
	}
}

func SeedRecognitions() []domain.Recognition {
	return []domain.Recognition{
		{Meta: seedMeta(true), Title: "Top Luxury Brokerage", Organization: "National Association of Realtors", Year: 2024, DisplayOrder: 1,
			Description: "Recognized among the top luxury brokerages by sales volume."},
		{Meta: seedMeta(true), Title: "Best Client Experience", Organization: "Real Estate Excellence Awards", Year: 2024, DisplayOrder: 2,
			Description: "Awarded for outstanding client satisfaction scores."},
		{Meta: seedMeta(true), Title: "Top 100 Agents", Organization: "RealTrends", Year: 2023, DisplayOrder: 3,
			Description: "Two team members named to the national top 100 list."},
		{Meta: seedMeta(false), Title: "Community Impact Award", Organization: "Chamber of Commerce", Year: 2023, DisplayOrder: 4,
			Description: "Honored for housing-access volunteer work and local sponsorships."},
		{Meta: seedMeta(false), Title: "Innovation in Marketing", Organization: "Inman", Year: 2022, DisplayOrder: 5,
			Description: "Recognized for immersive virtual tour listings."},
	}
}

func SeedPartnerships() []domain.Partnership {
	return []domain.Partnership{
		{Meta: seedMeta(true), Name: "First Coast Title & Escrow", Category: "Title & Escrow", DisplayOrder: 1,
			Website: "https://example.com/title", Description: "Title search, insurance and escrow services for every closing."},
		{Meta: seedMeta(true), Name: "Harbor Home Lending", Category: "Mortgage", DisplayOrder: 2,
			Website: "https://example.com/lending", Description: "Jumbo and conventional financing with fast pre-approvals."},
		{Meta: seedMeta(true), Name: "Precision Home Inspections", Category: "Inspection", DisplayOrder: 3,
			Website: "https://example.com/inspections", Description: "Certified inspectors for residential and waterfront properties."},
		{Meta: seedMeta(false), Name: "Atelier Staging Co.", Category: "Staging", DisplayOrder: 4,
			Website: "https://example.com/staging", Description: "Interior styling and staging for listings."},
		{Meta: seedMeta(false), Name: "Shoreline Insurance Group", Category: "Insurance", DisplayOrder: 5,
			Website: "https://example.com/insurance", Description: "Homeowners and flood coverage for coastal properties."},
		{Meta: seedMeta(false), Name: "Summit Relocation Partners", Category: "Relocation", DisplayOrder: 6,
			Website: "https://example.com/relocation", Description: "Corporate and family relocation coordination."},
	}
}
