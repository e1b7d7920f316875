/*Package porous holds the data shared by the calculation and workchain packages of porousmaterials:
the parameter dictionaries that configure each calculation, the framework structures read from CIF files,
the atomic radii written for Zeo++ and the Voronoi node files Zeo++ produces.


	**porousmaterials capabilities**


    Prepares, runs and parses Zeo++ network calculations (pore diameters, CSSR conversion,
	channels and accessible Voronoi nodes).

    Prepares, runs and parses PorousMaterials.jl Voronoi energy (Ev) calculations from
	embedded Julia input templates.

    Chains both into the VoronoiEnergy workchain, which pre-screens a structure by its
	largest cavity and pore limiting diameters, optionally repeats the pore analysis at
	higher accuracy, and computes energies only if accessible Voronoi nodes exist.

    Keeps a provenance record of every calculation in a SQLite database, and plots
	Ev distributions.

Zeo++ and PorousMaterials.jl must be obtained independently from their respective distributors.
*/
package porous
