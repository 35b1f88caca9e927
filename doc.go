// Package walkneat evolves feed-forward neural controllers with a reduced
// NEAT algorithm: networks grow by adding connections and splitting them
// with new nodes, weights and biases are perturbed, and every generation
// keeps an elite, samples parents by fitness-proportional selection and
// records the best genomes in a hall of fame. There is no crossover and no
// speciation.
//
// The module is organized as:
//
//	neat/dag      acyclic topology with incremental depth tracking
//	neat/nn       compiled networks evaluated without allocation
//	neat          genomes, the genome file format, mutation, selection and the evolver
//	neat/stadium  parallel evaluation of one simulation task per genome
//	neat/store    run history in memory or SQLite
//
// Basic usage:
//
//	// Load configuration
//	config, err := neat.LoadConfig("path/to/config.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Create a new population
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	// Run for 100 generations with your fitness function
//	for i := 0; i < 100 && !pop.Solved(); i++ {
//		if _, err := pop.RunGeneration(ctx, evalGenomes); err != nil {
//			log.Fatalf("Error running generation: %v", err)
//		}
//	}
//
// Simulations stepped in time implement stadium.Task and are driven by a
// stadium.Stadium instead of a fitness function.
package walkneat
