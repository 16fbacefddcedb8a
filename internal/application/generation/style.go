package generation

import (
	"math/rand"
	"strings"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
)

// Style slot names
const (
	StyleProtein     = "protein"
	StyleCarb        = "carb"
	StyleVegetable   = "vegetable"
	StyleCardio      = "cardio"
	StyleStrength    = "strength"
	StyleFlexibility = "flexibility"
	StyleEquipment   = "equipment"
)

type stylePool struct {
	slot  string
	items []string
}

var dietPools = []stylePool{
	{StyleProtein, []string{
		"Cod Fillet", "Salmon", "Tofu", "Lean Beef Steak", "Shrimp",
		"Turkey Breast", "Pork Tenderloin", "Lamb Chop", "Edamame", "Tempeh",
		"Duck Breast", "Tuna Steak", "Sardines", "Chickpeas",
	}},
	{StyleCarb, []string{
		"Quinoa", "Sweet Potato", "Buckwheat", "Whole Wheat Pasta", "Couscous",
		"Barley", "Corn", "Multigrain Bread", "Red Potato", "Wild Rice",
		"Polenta", "Bulgur", "Millet",
	}},
	{StyleVegetable, []string{
		"Asparagus", "Spinach", "Kale", "Zucchini", "Bell Peppers",
		"Eggplant", "Cauliflower", "Green Beans", "Brussels Sprouts",
		"Bok Choy", "Artichokes", "Mushrooms", "Snow Peas",
	}},
}

var exercisePools = []stylePool{
	{StyleCardio, []string{
		"Outdoor Running", "Treadmill Running", "Cycling (Outdoor)", "Stationary Bike",
		"Swimming (Freestyle)", "Swimming (Laps)", "Rowing Machine", "Jump Rope",
		"Hiking (Trail)", "Stair Climbing", "Elliptical Training", "Dancing (Aerobic)",
		"Boxing (Bag Work)", "Kettlebell Cardio", "Battle Ropes", "Mountain Climbers",
	}},
	{StyleStrength, []string{
		"Barbell Squats", "Deadlifts", "Bench Press", "Overhead Press",
		"Pull-Ups", "Dips", "Push-Ups", "Lunges",
		"Goblet Squats", "Turkish Get-Up", "Kettlebell Swings", "Farmer's Walk",
		"Romanian Deadlifts", "Face Pulls", "Plank Variations", "Bulgarian Split Squats",
	}},
	{StyleFlexibility, []string{
		"Sun Salutation Flow", "Hip Flexor Stretch", "Hamstring Stretch",
		"Cat-Cow Pose", "Child's Pose", "Pigeon Pose", "Seated Forward Fold",
		"Quad Stretch", "Chest Opener", "Thread the Needle Stretch",
		"Downward Dog", "Warrior Poses", "Balance Tree Pose", "Deep Breathing",
	}},
	{StyleEquipment, []string{
		"Resistance Bands", "Dumbbells", "Kettlebell", "Medicine Ball",
		"TRX Suspension", "Pull-Up Bar", "Jump Rope", "Foam Roller",
		"Yoga Mat", "Exercise Bench", "None (Bodyweight Only)",
	}},
}

// Staples that dominate unconstrained generations
var (
	boringFoods     = []string{"Chicken Breast", "Brown Rice", "Broccoli", "Boiled Egg"}
	boringExercises = []string{
		"Brisk Walking", "Bodyweight Squats", "Jumping Jacks", "Plank Hold",
		"Stationary Biking (Easy)", "Basic Stretching",
	}
)

var (
	cuisineThemes = []string{
		"Mediterranean", "Japanese", "Mexican", "Indian", "Thai", "Middle Eastern",
		"Nordic", "Korean", "Italian", "Greek", "Vietnamese", "Ethiopian",
	}
	trainingThemes = []string{
		"Circuit", "Supersets", "Pyramid Sets", "EMOM", "Interval Ladder",
		"Steady-State Endurance", "Tempo Training", "Mobility Flow",
	}
)

// StyleFor draws the style vector for one generation call. The same kind
// and seed always produce the same vector.
func StyleFor(kind plan.Kind, seed int64) plan.Style {
	rng := rand.New(rand.NewSource(seed))

	pools, excluded, themes := dietPools, boringFoods, cuisineThemes
	if kind == plan.KindExercise {
		pools, excluded, themes = exercisePools, boringExercises, trainingThemes
	}

	chosen := make(map[string]struct{}, len(pools))
	mandatory := make([]plan.StyleItem, 0, len(pools))
	for _, pool := range pools {
		item := draw(rng, pool.items, chosen)
		chosen[strings.ToLower(item)] = struct{}{}
		mandatory = append(mandatory, plan.StyleItem{Slot: pool.slot, Item: item})
	}

	return plan.Style{
		Seed:      seed,
		Mandatory: mandatory,
		Excluded:  append([]string(nil), excluded...),
		Theme:     themes[rng.Intn(len(themes))],
	}
}

// draw picks an item not yet chosen. Pools are always larger than the
// number of slots, so a free item exists.
func draw(rng *rand.Rand, items []string, chosen map[string]struct{}) string {
	order := rng.Perm(len(items))
	for _, i := range order {
		if _, taken := chosen[strings.ToLower(items[i])]; !taken {
			return items[i]
		}
	}
	return items[order[0]]
}
