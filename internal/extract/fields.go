package extract

var (
	SoftPledges      = NewField("softPledges", Decimal, "Total in soft pledges", "Soft pledges")
	HardPledges      = NewField("hardPledges", Decimal, "Total in hard pledges", "Hard pledges")
	EstimatedPledges = NewField("estimatedPledges", Decimal, "Total estimated pledges", "Estimated pledges")
	NumberOfPledges  = NewField("numberOfPledges", Integer, "Total number of pledges", "Number of pledges")
	NumberOfCalls    = NewField("numberOfCalls", Integer, "Number of calls", "Calls")
	NumberOfPickups  = NewField("numberOfPickups", Integer, "Number of pickups", "Pickups")
)
